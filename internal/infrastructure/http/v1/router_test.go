package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barstock/internal/app"
	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/domain/catalog"
	v1 "barstock/internal/infrastructure/http/v1"
	"barstock/internal/infrastructure/http/v1/dto"
	"barstock/internal/infrastructure/http/v1/middleware"
	"barstock/pkg/logger"
)

type apiFixture struct {
	t      *testing.T
	router *gin.Engine
	hotel  id.ID
	keg    catalog.StockItem
	gin    catalog.StockItem
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	engine, store := app.NewMemory(app.Options{})
	hotel := id.New()

	f := &apiFixture{
		t:      t,
		router: v1.NewRouter(v1.RouterConfig{Engine: engine, Storage: "memory", Logger: logger.NewNop()}),
		hotel:  hotel,
		keg: catalog.StockItem{
			ID: id.New(), HotelID: hotel, CategoryCode: catalog.CategoryDraught,
			SKU: "KEG", Name: "Lager Keg", UnitCost: decimal.RequireFromString("152.46"),
			UOM: decimal.RequireFromString("50.82"), Active: true,
		},
		gin: catalog.StockItem{
			ID: id.New(), HotelID: hotel, CategoryCode: catalog.CategorySpirits,
			SKU: "GIN", Name: "Gin 70cl", UnitCost: decimal.RequireFromString("25.60"),
			UOM: decimal.NewFromInt(1), SizeML: decimal.NewFromInt(700), Active: true,
		},
	}
	require.NoError(t, store.Items().Put(context.Background(), f.keg, f.gin))
	return f
}

func (f *apiFixture) do(method, path string, body any, out any) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderHotelID, f.hotel.String())
	req.Header.Set(middleware.HeaderUserID, "manager")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	if out != nil && w.Code < 300 {
		require.NoError(f.t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w
}

func problemOf(t *testing.T, w *httptest.ResponseRecorder) dto.Problem {
	t.Helper()
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	var p dto.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	return p
}

type periodBody struct {
	ID       string `json:"id"`
	IsClosed bool   `json:"isClosed"`
	Label    string `json:"label"`
}

type lineBody struct {
	ID     string `json:"id"`
	ItemID string `json:"itemId"`
}

type stocktakeBody struct {
	ID     string     `json:"id"`
	Status string     `json:"status"`
	Lines  []lineBody `json:"lines"`
}

func (s stocktakeBody) lineFor(itemID id.ID) string {
	for _, l := range s.Lines {
		if l.ItemID == itemID.String() {
			return l.ID
		}
	}
	return ""
}

func TestHealthNeedsNoHotel(t *testing.T) {
	f := newAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
}

func TestMissingHotelHeaderIsRejected(t *testing.T) {
	f := newAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/periods", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	p := problemOf(t, w)
	assert.Equal(t, apperror.CodeValidation, p.Code)
	assert.Equal(t, http.StatusBadRequest, p.Status)
}

func TestStocktakeLifecycleOverHTTP(t *testing.T) {
	f := newAPI(t)

	var jan periodBody
	w := f.do(http.MethodPost, "/api/v1/periods", gin.H{"startDate": "2024-01-01", "endDate": "2024-01-31"}, &jan)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(http.MethodPost, "/api/v1/periods", gin.H{"startDate": "2024-01-20", "endDate": "2024-02-10"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperror.CodePeriodOverlap, problemOf(t, w).Code)

	w = f.do(http.MethodPost, "/api/v1/movements", gin.H{
		"itemId": f.keg.ID, "periodId": jan.ID, "movementType": "PURCHASE",
		"quantity": "101.64", "unitCost": "152.46", "occurredAt": "2024-01-10T12:00:00Z",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Stocktake stocktakeBody `json:"stocktake"`
	}
	w = f.do(http.MethodPost, "/api/v1/periods/"+jan.ID+"/stocktake", nil, &created)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	st := created.Stocktake
	require.Len(t, st.Lines, 2)

	w = f.do(http.MethodPost, "/api/v1/stocktakes/"+st.ID+"/approve", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apperror.CodeIncompleteLines, problemOf(t, w).Code)

	var counted struct {
		Figures struct {
			CountedValue decimal.Decimal `json:"countedValue"`
		} `json:"figures"`
	}
	w = f.do(http.MethodPut, "/api/v1/stocktakes/"+st.ID+"/lines/"+st.lineFor(f.keg.ID)+"/count",
		gin.H{"fullUnits": "2", "partialUnits": "26.5"}, &counted)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, counted.Figures.CountedValue.Equal(decimal.RequireFromString("384.42")))

	w = f.do(http.MethodPut, "/api/v1/stocktakes/"+st.ID+"/lines/"+st.lineFor(f.gin.ID)+"/bottles",
		gin.H{"bottles": "2.25"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var approved struct {
		Stocktake stocktakeBody `json:"stocktake"`
		Close     struct {
			Written    int             `json:"written"`
			TotalValue decimal.Decimal `json:"totalValue"`
		} `json:"close"`
	}
	w = f.do(http.MethodPost, "/api/v1/stocktakes/"+st.ID+"/approve", nil, &approved)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "APPROVED", approved.Stocktake.Status)
	assert.Equal(t, 2, approved.Close.Written)
	assert.True(t, approved.Close.TotalValue.Equal(decimal.RequireFromString("442.02")), approved.Close.TotalValue.String())

	var got periodBody
	w = f.do(http.MethodGet, "/api/v1/periods/"+jan.ID, nil, &got)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, got.IsClosed)

	w = f.do(http.MethodPost, "/api/v1/movements", gin.H{
		"itemId": f.keg.ID, "periodId": jan.ID, "movementType": "WASTE",
		"quantity": "1", "occurredAt": "2024-01-11T12:00:00Z",
	}, nil)
	assert.Equal(t, apperror.CodePeriodClosed, problemOf(t, w).Code)

	var report struct {
		Findings []any `json:"findings"`
	}
	w = f.do(http.MethodGet, "/api/v1/integrity", nil, &report)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, report.Findings)
}

func TestOtherHotelCannotSeePeriod(t *testing.T) {
	f := newAPI(t)

	var jan periodBody
	w := f.do(http.MethodPost, "/api/v1/periods", gin.H{"startDate": "2024-01-01", "endDate": "2024-01-31"}, &jan)
	require.Equal(t, http.StatusCreated, w.Code)

	f.hotel = id.New()
	w = f.do(http.MethodGet, "/api/v1/periods/"+jan.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBadRequestBodies(t *testing.T) {
	f := newAPI(t)

	tests := []struct {
		name string
		path string
		body any
	}{
		{"missing end date", "/api/v1/periods", gin.H{"startDate": "2024-01-01"}},
		{"malformed date", "/api/v1/periods", gin.H{"startDate": "01/01/2024", "endDate": "2024-01-31"}},
		{"movement without quantity", "/api/v1/movements", gin.H{
			"itemId": f.keg.ID, "periodId": id.New(), "movementType": "SALE", "occurredAt": "2024-01-10T00:00:00Z",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodPost, tt.path, tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, apperror.CodeValidation, problemOf(t, w).Code)
		})
	}
}

func TestMoneyIsRoundedForDisplay(t *testing.T) {
	f := newAPI(t)

	var jan periodBody
	w := f.do(http.MethodPost, "/api/v1/periods", gin.H{"startDate": "2024-01-01", "endDate": "2024-01-31"}, &jan)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Stocktake stocktakeBody `json:"stocktake"`
	}
	w = f.do(http.MethodPost, "/api/v1/periods/"+jan.ID+"/stocktake", nil, &created)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	st := created.Stocktake

	w = f.do(http.MethodPut, "/api/v1/stocktakes/"+st.ID+"/lines/"+st.lineFor(f.keg.ID)+"/count",
		gin.H{"fullUnits": "0", "partialUnits": "0"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 2.333 bottles at 25.60 is 59.7248.
	var counted struct {
		Figures struct {
			CountedValue decimal.Decimal `json:"countedValue"`
		} `json:"figures"`
	}
	w = f.do(http.MethodPut, "/api/v1/stocktakes/"+st.ID+"/lines/"+st.lineFor(f.gin.ID)+"/bottles",
		gin.H{"bottles": "2.333"}, &counted)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "59.72", counted.Figures.CountedValue.String())

	var totals struct {
		Grand struct {
			CountedValue decimal.Decimal `json:"countedValue"`
			StockValue   decimal.Decimal `json:"stockValue"`
		} `json:"grand"`
	}
	w = f.do(http.MethodGet, "/api/v1/stocktakes/"+st.ID+"/totals", nil, &totals)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "59.72", totals.Grand.CountedValue.String())
	assert.Equal(t, "59.72", totals.Grand.StockValue.String())

	var sheet struct {
		Lines []struct {
			ItemID  string `json:"itemId"`
			Figures struct {
				CountedValue decimal.Decimal `json:"countedValue"`
			} `json:"figures"`
		} `json:"lines"`
	}
	w = f.do(http.MethodGet, "/api/v1/stocktakes/"+st.ID, nil, &sheet)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	for _, l := range sheet.Lines {
		if l.ItemID == f.gin.ID.String() {
			assert.Equal(t, "59.72", l.Figures.CountedValue.String())
		}
	}

	var approved struct {
		Close struct {
			TotalValue decimal.Decimal `json:"totalValue"`
		} `json:"close"`
	}
	w = f.do(http.MethodPost, "/api/v1/stocktakes/"+st.ID+"/approve", nil, &approved)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "59.72", approved.Close.TotalValue.String())
}
