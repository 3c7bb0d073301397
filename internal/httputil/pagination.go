package httputil

import (
	"strconv"

	"github.com/gin-gonic/gin"
	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/docvault/internal/errors"
	customValidation "github.com/allisson/docvault/internal/validation"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
	// maxEventPageLimit is wider because auditors export whole document streams.
	maxEventPageLimit = 500
)

// Page is an offset window over a listing.
type Page struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

func (p *Page) validate(maxLimit int) error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Offset, validation.Min(0)),
		validation.Field(&p.Limit, validation.Min(1), validation.Max(maxLimit)),
	)
}

// ParsePagination reads offset and limit from the query string. Absent values default to
// 0 and 50; limit is capped at 100.
func ParsePagination(c *gin.Context) (offset, limit int, err error) {
	page, err := parsePage(c, maxPageLimit)
	return page.Offset, page.Limit, err
}

// ParseEventPagination is ParsePagination for audit event listings, capped at 500.
func ParseEventPagination(c *gin.Context) (offset, limit int, err error) {
	page, err := parsePage(c, maxEventPageLimit)
	return page.Offset, page.Limit, err
}

func parsePage(c *gin.Context, maxLimit int) (Page, error) {
	var (
		page Page
		err  error
	)
	if page.Offset, err = queryInt(c, "offset", 0); err != nil {
		return Page{}, err
	}
	if page.Limit, err = queryInt(c, "limit", defaultPageLimit); err != nil {
		return Page{}, err
	}
	if err := page.validate(maxLimit); err != nil {
		return Page{}, customValidation.WrapValidationError(err)
	}
	return page, nil
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Wrapf(apperrors.ErrInvalidInput, "%s: must be an integer", key)
	}
	return v, nil
}
