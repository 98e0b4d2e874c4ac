package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopgrid/scraper/internal/models"
)

var errMissingField = errors.New("required field missing")

type ShoppingParser struct {
	base   *url.URL
	logger *slog.Logger
}

// NewShoppingParser returns a parser that resolves relative filter links
// against baseURL. An empty baseURL selects DefaultBaseURL.
func NewShoppingParser(baseURL string, logger *slog.Logger) (*ShoppingParser, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("base URL %q is not absolute", baseURL)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ShoppingParser{
		base:   base,
		logger: logger.With("component", "parser"),
	}, nil
}

// ParseFilters reads the "Refine results" panel. A page without the panel
// yields an empty FilterPanel, not an error.
func (p *ShoppingParser) ParseFilters(html string) (*models.FilterPanel, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	panel := models.NewFilterPanel()

	header := doc.Find("h3").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return normalizeSpace(s.Text()) == RefineHeadingText
	}).First()
	if header.Length() == 0 {
		p.logger.Warn("filter panel heading not found", "heading", RefineHeadingText)
		return panel, nil
	}

	container := header.ParentsFiltered(navigationSelector).First()
	if container.Length() == 0 {
		p.logger.Warn("filter heading has no navigation container")
		return panel, nil
	}

	container.Find(groupSelector).Each(func(_ int, group *goquery.Selection) {
		heading := group.Find(groupHeadingSel).First()
		if heading.Length() == 0 {
			return
		}
		name := strings.TrimSpace(heading.Text())
		g := panel.SetGroup(name, nil)

		list := group.Find(optionListSelector).First()
		if list.Length() == 0 {
			return
		}
		list.Find("a").Each(func(_ int, link *goquery.Selection) {
			info := link.Find(optionInfoSelector).First()
			if info.Length() == 0 {
				return
			}
			title := strings.TrimSpace(info.AttrOr("title", ""))
			if title == "" {
				return
			}
			g.Options = append(g.Options, models.FilterOption{
				Name:       title,
				TargetURL:  p.resolve(link),
				IsSelected: isSelected(info),
			})
		})
	})

	if onSale := container.Find(onSaleSelector).First(); onSale.Length() > 0 {
		panel.SetGroup(models.OfferGroup, []models.FilterOption{{
			Name:       onSaleName,
			TargetURL:  p.resolve(onSale),
			IsSelected: isSelected(onSale.Find(optionInfoSelector).First()),
		}})
	}

	p.logger.Debug("parsed filter panel", "groups", len(panel.Groups))
	return panel, nil
}

// ExtractGrid reads the static result cards in document order. Cards missing
// a required field are dropped; optional fields default to nil.
func (p *ShoppingParser) ExtractGrid(html string) ([]*models.ProductRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	products := make([]*models.ProductRecord, 0)
	cards := doc.Find(cardSelector)
	cards.Each(func(i int, card *goquery.Selection) {
		product, err := parseCard(card)
		if err != nil {
			p.logger.Debug("skipping card", "index", i, "error", err)
			return
		}
		products = append(products, product)
	})

	p.logger.Info("extracted grid", "cards", cards.Length(), "products", len(products))
	return products, nil
}

// ParseDetail reads the outbound link and image of an opened result panel.
func (p *ShoppingParser) ParseDetail(html string) (*Detail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse detail HTML: %w", err)
	}

	return &Detail{
		ProductLink: doc.Find(detailLinkSelector).First().AttrOr("href", ""),
		ImageURL:    doc.Find(detailImageSelector).First().AttrOr("src", ""),
	}, nil
}

func parseCard(card *goquery.Selection) (*models.ProductRecord, error) {
	content := card.Find(cardContentSelector).First()
	if content.Length() == 0 {
		return nil, fmt.Errorf("%w: content block", errMissingField)
	}

	title, ok := text(content, titleSelector)
	if !ok {
		return nil, fmt.Errorf("%w: title", errMissingField)
	}
	price, ok := text(content, priceSelector)
	if !ok {
		return nil, fmt.Errorf("%w: price", errMissingField)
	}
	seller, ok := text(content, sellerSelector)
	if !ok {
		return nil, fmt.Errorf("%w: seller", errMissingField)
	}

	product := &models.ProductRecord{
		Title:        title,
		PriceCurrent: price,
		Seller:       seller,
	}
	if v, ok := text(content, originalPriceSelector); ok {
		product.PriceOriginal = &v
	}
	if v, ok := text(content, ratingSelector); ok {
		product.RatingScore = &v
	}
	if v, ok := text(content, reviewCountSelector); ok {
		v = ParseReviewCount(v)
		product.ReviewCount = &v
	}

	return product, nil
}

// ParseReviewCount strips the enclosing parentheses of a review count label,
// so "(128)" becomes "128".
func ParseReviewCount(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "()"))
}

func text(s *goquery.Selection, selector string) (string, bool) {
	el := s.Find(selector).First()
	if el.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(el.Text()), true
}

func isSelected(info *goquery.Selection) bool {
	if info.Length() == 0 {
		return false
	}
	return strings.Contains(info.AttrOr("aria-label", ""), selectedLabelMarker)
}

// resolve turns the element's href into an absolute URL, nil when absent.
func (p *ShoppingParser) resolve(link *goquery.Selection) *string {
	href, ok := link.Attr("href")
	if !ok || href == "" {
		return nil
	}
	ref, err := url.Parse(href)
	if err != nil {
		p.logger.Debug("unparseable filter link", "href", href, "error", err)
		return nil
	}
	abs := p.base.ResolveReference(ref).String()
	return &abs
}

// normalizeSpace trims s and collapses inner whitespace runs to one space,
// as XPath normalize-space does.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
