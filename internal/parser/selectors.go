package parser

// Structural hooks of the shopping results page. These are presentation
// details of the site and change without notice.
const (
	RefineHeadingText = "Refine results"
	// RefineHeadingXPath matches the panel heading in a live page. Whitespace
	// is collapsed the same way ParseFilters collapses it.
	RefineHeadingXPath = "//h3[normalize-space(.)='" + RefineHeadingText + "']"

	navigationSelector  = "div[role='navigation']"
	groupSelector       = "g-accordion-expander"
	groupHeadingSel     = "span[role='heading']"
	optionListSelector  = "ul[jsname='CbM3zb']"
	optionInfoSelector  = "div.IFgTAb"
	onSaleSelector      = "a[title='On sale']"
	onSaleName          = "On sale"
	selectedLabelMarker = "Selected."

	cardSelector          = "li.YBo8bb"
	cardContentSelector   = "div[role='link']"
	titleSelector         = "div.gkQHve"
	priceSelector         = "span.lmQWe"
	originalPriceSelector = "span.DoCHT"
	sellerSelector        = "span.WJMUdc"
	ratingSelector        = "span.yi40Hd"
	reviewCountSelector   = "span.RDApEe"

	detailLinkSelector  = "a.uchJRc"
	detailImageSelector = "img.KfAt4d"
)

// Selectors used against the live page during enrichment.
const (
	ClickableCardSelector = "div.LrTUQ"
	DetailPanelSelector   = "div.zxYWDc"
)

const DefaultBaseURL = "https://www.google.com/"
