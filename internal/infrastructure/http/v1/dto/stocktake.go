package dto

import (
	"github.com/shopspring/decimal"

	"barstock/internal/core/apperror"
	"barstock/internal/domain/stocktake"
	"barstock/internal/domain/valuation"
)

type CountUnitsRequest struct {
	FullUnits    *decimal.Decimal `json:"fullUnits" binding:"required"`
	PartialUnits *decimal.Decimal `json:"partialUnits" binding:"required"`
}

// CountBottlesRequest enters a syrup count as decimal bottles.
type CountBottlesRequest struct {
	Bottles *decimal.Decimal `json:"bottles" binding:"required"`
}

// LineResponse is a line with its derived figures, rounded for display.
type LineResponse struct {
	stocktake.Line
	Figures stocktake.Figures `json:"figures"`
}

type StocktakeResponse struct {
	*stocktake.Stocktake
	Lines []LineResponse `json:"lines"`
}

// FromStocktake attaches rounded figures to every line. A line that cannot be
// valued fails the whole response.
func FromStocktake(st *stocktake.Stocktake, calc *valuation.Calculator) (StocktakeResponse, error) {
	lines := make([]LineResponse, 0, len(st.Lines))
	for i := range st.Lines {
		f, err := st.Lines[i].Figures(calc)
		if err != nil {
			if ae, ok := apperror.AsAppError(err); ok {
				ae.WithDetail("lineNo", st.Lines[i].LineNo)
			}
			return StocktakeResponse{}, err
		}
		lines = append(lines, LineResponse{Line: st.Lines[i], Figures: f.Rounded()})
	}
	return StocktakeResponse{Stocktake: st, Lines: lines}, nil
}

// CountResponse is a counted line with rounded figures.
type CountResponse struct {
	Line     *stocktake.Line   `json:"line"`
	Figures  stocktake.Figures `json:"figures"`
	Warnings apperror.Warnings `json:"warnings,omitempty"`
}

func FromCount(res *stocktake.CountResult) CountResponse {
	return CountResponse{Line: res.Line, Figures: res.Figures.Rounded(), Warnings: res.Warnings}
}

// FromClose rounds the closed stock value.
func FromClose(res *stocktake.CloseResult) stocktake.CloseResult {
	out := *res
	out.TotalValue = valuation.Round(out.TotalValue)
	return out
}

type ApproveResponse struct {
	Stocktake StocktakeResponse     `json:"stocktake"`
	Close     stocktake.CloseResult `json:"close"`
	Totals    *stocktake.Totals     `json:"totals"`
	Warnings  apperror.Warnings     `json:"warnings,omitempty"`
}

func FromApprove(res *stocktake.ApproveResult, calc *valuation.Calculator) (ApproveResponse, error) {
	st, err := FromStocktake(res.Stocktake, calc)
	if err != nil {
		return ApproveResponse{}, err
	}
	return ApproveResponse{
		Stocktake: st,
		Close:     FromClose(res.Close),
		Totals:    res.Totals.Rounded(),
		Warnings:  res.Warnings,
	}, nil
}

type CreateResponse struct {
	Stocktake StocktakeResponse `json:"stocktake"`
	Warnings  apperror.Warnings `json:"warnings,omitempty"`
}

func FromCreate(res *stocktake.CreateResult, calc *valuation.Calculator) (CreateResponse, error) {
	st, err := FromStocktake(res.Stocktake, calc)
	if err != nil {
		return CreateResponse{}, err
	}
	return CreateResponse{Stocktake: st, Warnings: res.Warnings}, nil
}
