package orders

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid"
)

const defaultNumberPrefix = "AE"

// numberSource hands out order numbers of the form PREFIX-<time>-<random>.
// Numbers minted in the same millisecond stay strictly increasing.
type numberSource struct {
	mu      sync.Mutex
	prefix  string
	entropy io.Reader
	now     func() time.Time
}

func newNumberSource(prefix string, now func() time.Time) *numberSource {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = defaultNumberPrefix
	}
	if now == nil {
		now = time.Now
	}
	return &numberSource{
		prefix:  prefix,
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     now,
	}
}

func (n *numberSource) Next() (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(n.now()), n.entropy)
	if err != nil {
		return "", fmt.Errorf("generate order number: %w", err)
	}
	s := id.String()
	// 10 characters of timestamp, 16 of entropy.
	return n.prefix + "-" + s[:10] + "-" + s[10:], nil
}
