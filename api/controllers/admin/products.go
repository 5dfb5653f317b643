package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/abhiruchieats/storefront-api/api/responses"
	"github.com/abhiruchieats/storefront-api/api/validators"
	product "github.com/abhiruchieats/storefront-api/internal/products"
	pkgerrors "github.com/abhiruchieats/storefront-api/pkg/errors"
	"github.com/abhiruchieats/storefront-api/pkg/logger"
)

type createProductBody struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"imageUrl"`
	InStock     *bool           `json:"inStock"`
}

type updateProductBody struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Category    *string          `json:"category"`
	ImageURL    *string          `json:"imageUrl"`
	InStock     *bool            `json:"inStock"`
}

type stockBody struct {
	InStock *bool `json:"inStock" validate:"required"`
}

// ProductList is the admin catalog view; it accepts the same ?category= filter.
func ProductList(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		items, err := svc.List(r.Context(), r.URL.Query().Get("category"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func ProductCreate(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var body createProductBody
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), product.CreateProductInput{
			Name:        body.Name,
			Description: body.Description,
			Price:       body.Price,
			Category:    body.Category,
			ImageURL:    body.ImageURL,
			InStock:     body.InStock,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusCreated, created, "Product created successfully")
	}
}

func ProductUpdate(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := productID(w, r, svc, logg)
		if !ok {
			return
		}

		var body updateProductBody
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), id, product.UpdateProductInput{
			Name:        body.Name,
			Description: body.Description,
			Price:       body.Price,
			Category:    body.Category,
			ImageURL:    body.ImageURL,
			InStock:     body.InStock,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, updated, "Product updated successfully")
	}
}

func ProductDelete(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := productID(w, r, svc, logg)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, nil, "Product deleted successfully")
	}
}

// ProductStock flips the in-stock flag without touching other fields.
func ProductStock(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := productID(w, r, svc, logg)
		if !ok {
			return
		}

		var body stockBody
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.SetStock(r.Context(), id, *body.InStock)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, updated, "Stock status updated")
	}
}

func productID(w http.ResponseWriter, r *http.Request, svc product.Service, logg *logger.Logger) (uuid.UUID, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
		return uuid.Nil, false
	}
	id, err := validators.ParseUUID(chi.URLParam(r, "productId"), "productId")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return uuid.Nil, false
	}
	return id, true
}
