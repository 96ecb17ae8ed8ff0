// Package main seeds a demo bar catalog for one hotel. Items get ids derived
// from the hotel and SKU, so seeding twice updates instead of duplicating.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"barstock/internal/app"
	"barstock/internal/config"
	"barstock/internal/core/id"
	"barstock/internal/domain/catalog"
	"barstock/pkg/logger"
)

type itemSeed struct {
	category catalog.CategoryCode
	sub      catalog.Subcategory
	sku      string
	name     string
	cost     string
	uom      string
	sizeML   string
}

var demoItems = []itemSeed{
	{catalog.CategoryDraught, "", "D-LAGER-50", "Lager 50L keg", "152.46", "50.82", "0"},
	{catalog.CategoryDraught, "", "D-STOUT-30", "Stout 30L keg", "118.20", "30.49", "0"},
	{catalog.CategoryBottled, "", "B-CIDER-24", "Cider 500ml case", "38.40", "24", "500"},
	{catalog.CategoryBottled, "", "B-ALE-12", "Pale ale 330ml case", "21.00", "12", "330"},
	{catalog.CategorySpirits, "", "S-GIN-70", "Gin 70cl", "25.60", "1", "700"},
	{catalog.CategorySpirits, "", "S-VODKA-70", "Vodka 70cl", "22.10", "1", "700"},
	{catalog.CategoryWine, "", "W-MERLOT", "Merlot 75cl", "9.80", "1", "750"},
	{catalog.CategoryMinerals, catalog.SubcategoryBIB, "M-COLA-BIB", "Cola bag-in-box", "171.16", "1", "0"},
	{catalog.CategoryMinerals, catalog.SubcategorySyrups, "M-VANILLA", "Vanilla syrup 70cl", "14.00", "20", "700"},
	{catalog.CategoryMinerals, catalog.SubcategoryJuices, "M-ORANGE", "Orange juice 1L", "3.20", "4", "1000"},
}

func main() {
	hotel := flag.String("hotel", "", "hotel id; a new one is generated when empty")
	flag.Parse()

	log, err := logger.New(logger.Config{Level: "info", Development: true})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("invalid configuration", "error", err)
	}
	if cfg.Storage != "postgres" {
		log.Fatal("seeding needs STORAGE=postgres")
	}

	hotelID := id.New()
	if *hotel != "" {
		if hotelID, err = id.Parse(*hotel); err != nil {
			log.Fatalw("bad -hotel", "error", err)
		}
	}

	ctx := context.Background()
	rt, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer rt.Close()

	items, err := buildItems(hotelID)
	if err != nil {
		log.Fatalw("invalid demo item", "error", err)
	}
	if err := rt.PG.Items().Put(ctx, items...); err != nil {
		log.Fatalw("failed to seed items", "error", err)
	}
	log.Infow("seeding completed successfully", "hotel_id", hotelID, "items", len(items))
}

func buildItems(hotelID id.ID) ([]catalog.StockItem, error) {
	items := make([]catalog.StockItem, 0, len(demoItems))
	for _, s := range demoItems {
		item := catalog.StockItem{
			ID:           uuid.NewSHA1(hotelID, []byte(s.sku)),
			HotelID:      hotelID,
			CategoryCode: s.category,
			Subcategory:  s.sub,
			SKU:          s.sku,
			Name:         s.name,
			UnitCost:     decimal.RequireFromString(s.cost),
			UOM:          decimal.RequireFromString(s.uom),
			SizeML:       decimal.RequireFromString(s.sizeML),
			Active:       true,
		}
		if err := item.Validate(); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
