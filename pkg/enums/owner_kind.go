package enums

// OwnerKind distinguishes anonymous session carts from signed-in user carts.
type OwnerKind string

const (
	OwnerKindSession OwnerKind = "session"
	OwnerKindUser    OwnerKind = "user"
)

func (k OwnerKind) IsValid() bool {
	return k == OwnerKindSession || k == OwnerKindUser
}
