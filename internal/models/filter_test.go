package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

func TestFilterPanelLookupFirstMatch(t *testing.T) {
	panel := NewFilterPanel()
	panel.SetGroup("Brand", []FilterOption{
		{Name: "Bata", TargetURL: strPtr("https://example.com/brand-bata")},
	})
	panel.SetGroup("Seller", []FilterOption{
		{Name: "Bata", TargetURL: strPtr("https://example.com/seller-bata")},
		{Name: "Amazon", TargetURL: strPtr("https://example.com/seller-amazon"), IsSelected: true},
	})

	target, ok := panel.LookupTarget("Bata")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/brand-bata", target)

	_, ok = panel.LookupTarget("bata")
	assert.False(t, ok, "lookup is case-sensitive")

	assert.Equal(t, []string{"Amazon"}, panel.Selected())
}

func TestFilterPanelLookupTargetSkipsLinklessMatch(t *testing.T) {
	panel := NewFilterPanel()
	panel.SetGroup("Brand", []FilterOption{
		{Name: "Blue"},
		{Name: "Blue", TargetURL: strPtr("https://example.com/brand-blue-2")},
	})
	panel.SetGroup("Color", []FilterOption{
		{Name: "Blue", TargetURL: strPtr("https://example.com/color-blue")},
	})

	target, ok := panel.LookupTarget("Blue")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/color-blue", target)

	_, ok = panel.LookupTarget("Red")
	assert.False(t, ok)
}

func TestFilterPanelSetGroupReplacesInPlace(t *testing.T) {
	panel := NewFilterPanel()
	panel.SetGroup("Size", []FilterOption{{Name: "7"}})
	panel.SetGroup("Color", nil)
	panel.SetGroup("Size", []FilterOption{{Name: "9"}})

	require.Len(t, panel.Groups, 2)
	assert.Equal(t, "Size", panel.Groups[0].Name)
	assert.Equal(t, "9", panel.Groups[0].Options[0].Name)
	assert.NotNil(t, panel.Group("Color").Options)
	assert.False(t, panel.Empty())
}

func TestProductRecordJSONNulls(t *testing.T) {
	p := ProductRecord{Title: "Sandal", PriceCurrent: "₹499", Seller: "Bata"}

	data, err := json.Marshal(p)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"title": "Sandal",
		"price_current": "₹499",
		"price_original": null,
		"seller": "Bata",
		"rating_score": null,
		"review_count": null,
		"product_link": null,
		"image_url": null
	}`, string(data))
	assert.False(t, p.Enriched())
}

func TestScrapeRunEnrichedCount(t *testing.T) {
	run := NewScrapeRun("sandals", []string{"Bata"})
	run.Products = append(run.Products,
		&ProductRecord{Title: "a", ProductLink: strPtr(""), ImageURL: strPtr("")},
		&ProductRecord{Title: "b"},
	)

	assert.Equal(t, 1, run.EnrichedCount())
	assert.False(t, run.Blocked())
	assert.NotEqual(t, [16]byte{}, [16]byte(run.ID))
}
