package dto

import (
	"barstock/internal/core/id"
	"barstock/internal/domain/period"
)

type CreatePeriodRequest struct {
	StartDate string `json:"startDate" binding:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" binding:"required,datetime=2006-01-02"`
}

// ToInput converts the request for hotelID.
func (r *CreatePeriodRequest) ToInput(hotelID id.ID) (period.CreateInput, error) {
	start, err := ParseDate("startDate", r.StartDate)
	if err != nil {
		return period.CreateInput{}, err
	}
	end, err := ParseDate("endDate", r.EndDate)
	if err != nil {
		return period.CreateInput{}, err
	}
	return period.CreateInput{HotelID: hotelID, StartDate: start, EndDate: end}, nil
}

type PeriodResponse struct {
	*period.StockPeriod
	Label string `json:"label"`
}

func FromPeriod(p *period.StockPeriod) PeriodResponse {
	return PeriodResponse{StockPeriod: p, Label: p.Label()}
}

func FromPeriods(ps []period.StockPeriod) []PeriodResponse {
	out := make([]PeriodResponse, 0, len(ps))
	for i := range ps {
		out = append(out, FromPeriod(&ps[i]))
	}
	return out
}
