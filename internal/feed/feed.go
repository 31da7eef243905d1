// Package feed loads and validates product feed files.
//
// A feed is a TOML file holding the products to push plus shared defaults
// (language, country, channel, currency) applied to every product that does
// not override them.
package feed

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"google.golang.org/api/content/v2.1"
)

// ErrEmptyFeed indicates the feed file contains no products.
var ErrEmptyFeed = errors.New("feed: no products defined")

// Defaults are shared values applied to products that leave them unset.
type Defaults struct {
	ContentLanguage string `toml:"content_language"`
	TargetCountry   string `toml:"target_country"`
	Channel         string `toml:"channel"`
	Currency        string `toml:"currency"`
}

// Product is one feed entry.
type Product struct {
	OfferID     string `toml:"offer_id"`
	Title       string `toml:"title"`
	Description string `toml:"description"`
	Link        string `toml:"link"`
	ImageLink   string `toml:"image_link"`

	Price    string `toml:"price"`
	Currency string `toml:"currency"`

	Availability string `toml:"availability"`
	Condition    string `toml:"condition"`
	Brand        string `toml:"brand"`
	GTIN         string `toml:"gtin"`

	ContentLanguage string `toml:"content_language"`
	TargetCountry   string `toml:"target_country"`
	Channel         string `toml:"channel"`
}

// Feed is a parsed product feed.
type Feed struct {
	Defaults Defaults  `toml:"defaults"`
	Products []Product `toml:"products"`
}

// defaultDefaults fills gaps left by the feed file.
var defaultDefaults = Defaults{
	ContentLanguage: "en",
	TargetCountry:   "US",
	Channel:         "online",
	Currency:        "USD",
}

// Load reads and validates a feed file.
func Load(path string) (*Feed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feed file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates feed TOML.
func Parse(data []byte) (*Feed, error) {
	var f Feed
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	f.applyDefaults()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// applyDefaults resolves per-product values against the feed defaults.
func (f *Feed) applyDefaults() {
	d := f.Defaults
	if d.ContentLanguage == "" {
		d.ContentLanguage = defaultDefaults.ContentLanguage
	}
	if d.TargetCountry == "" {
		d.TargetCountry = defaultDefaults.TargetCountry
	}
	if d.Channel == "" {
		d.Channel = defaultDefaults.Channel
	}
	if d.Currency == "" {
		d.Currency = defaultDefaults.Currency
	}
	f.Defaults = d

	for i := range f.Products {
		p := &f.Products[i]
		if p.ContentLanguage == "" {
			p.ContentLanguage = d.ContentLanguage
		}
		if p.TargetCountry == "" {
			p.TargetCountry = d.TargetCountry
		}
		if p.Channel == "" {
			p.Channel = d.Channel
		}
		if p.Currency == "" {
			p.Currency = d.Currency
		}
		if p.Availability == "" {
			p.Availability = "in stock"
		}
		if p.Condition == "" {
			p.Condition = "new"
		}
	}
}

// Validate checks required fields on every product.
func (f *Feed) Validate() error {
	if len(f.Products) == 0 {
		return ErrEmptyFeed
	}

	seen := make(map[string]bool, len(f.Products))
	for i, p := range f.Products {
		switch {
		case p.OfferID == "":
			return fmt.Errorf("feed: product %d missing offer_id", i)
		case seen[p.OfferID]:
			return fmt.Errorf("feed: duplicate offer_id %q", p.OfferID)
		case p.Title == "":
			return fmt.Errorf("feed: product %q missing title", p.OfferID)
		case p.Link == "":
			return fmt.Errorf("feed: product %q missing link", p.OfferID)
		case p.Price == "":
			return fmt.Errorf("feed: product %q missing price", p.OfferID)
		}
		seen[p.OfferID] = true
	}
	return nil
}

// ContentProducts maps the feed to Content API product values.
func (f *Feed) ContentProducts() []*content.Product {
	products := make([]*content.Product, 0, len(f.Products))
	for _, p := range f.Products {
		products = append(products, &content.Product{
			OfferId:         p.OfferID,
			Title:           p.Title,
			Description:     p.Description,
			Link:            p.Link,
			ImageLink:       p.ImageLink,
			ContentLanguage: p.ContentLanguage,
			TargetCountry:   p.TargetCountry,
			Channel:         p.Channel,
			Availability:    p.Availability,
			Condition:       p.Condition,
			Brand:           p.Brand,
			Gtin:            p.GTIN,
			Price: &content.Price{
				Value:    p.Price,
				Currency: p.Currency,
			},
		})
	}
	return products
}
