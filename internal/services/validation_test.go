package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid sale request", func(t *testing.T) {
		valid := SaleRequest{
			ReferenceID:    "order_1",
			CounterpartyID: "22222222-2222-2222-2222-222222222222",
			Amount:         2999,
		}

		err := vh.ValidateStruct(&valid)
		assert.NoError(t, err)
	})

	t.Run("missing required fields", func(t *testing.T) {
		invalid := SaleRequest{
			CounterpartyID: "not-a-uuid",
			Amount:         0,
		}

		err := vh.ValidateStruct(&invalid)
		assert.Error(t, err)
	})

	t.Run("split bps out of range", func(t *testing.T) {
		bps := 10001
		invalid := SaleRequest{
			ReferenceID:    "order_1",
			CounterpartyID: "22222222-2222-2222-2222-222222222222",
			Amount:         2999,
			SplitBps:       &bps,
		}

		err := vh.ValidateStruct(&invalid)
		assert.Error(t, err)
	})
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("with validation details", func(t *testing.T) {
		vh := NewValidationHelper()
		err := vh.ValidateStruct(&SaleRequest{})
		assert.Error(t, err)

		w := httptest.NewRecorder()
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var resp ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Validation failed", resp.Error)
		assert.NotEmpty(t, resp.Details)
	})

	t.Run("without details", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendErrorResponse(w, "Not found", http.StatusNotFound, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)

		var resp ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Not found", resp.Error)
		assert.Empty(t, resp.Details)
	})
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(1))
	assert.NoError(t, ValidateAmount(MaxAmount))
	assert.Error(t, ValidateAmount(0))
	assert.Error(t, ValidateAmount(-5))
	assert.Error(t, ValidateAmount(MaxAmount+1))
}

func TestNormalizeString(t *testing.T) {
	t.Run("trims surrounding whitespace", func(t *testing.T) {
		s, err := NormalizeString("reference_id", "  order_1  ")
		assert.NoError(t, err)
		assert.Equal(t, "order_1", s)
	})

	t.Run("rejects blank values", func(t *testing.T) {
		_, err := NormalizeString("reference_id", "   ")
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr)
		assert.Equal(t, "reference_id", vErr.Field)
	})

	t.Run("rejects oversized values", func(t *testing.T) {
		_, err := NormalizeString("reference_id", strings.Repeat("x", MaxStringLength+1))
		assert.Error(t, err)
	})
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("billing@example.com"))
	assert.Error(t, ValidateEmail("not-an-email"))
}

func TestValidateDate(t *testing.T) {
	assert.NoError(t, ValidateDate("due_date", "2026-03-15"))
	assert.Error(t, ValidateDate("due_date", "15/03/2026"))
	assert.Error(t, ValidateDate("due_date", "2026-13-40"))
}

func TestValidateSplitBps(t *testing.T) {
	assert.NoError(t, ValidateSplitBps(0))
	assert.NoError(t, ValidateSplitBps(8000))
	assert.NoError(t, ValidateSplitBps(10000))
	assert.Error(t, ValidateSplitBps(-1))
	assert.Error(t, ValidateSplitBps(10001))
}
