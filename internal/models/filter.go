package models

// OfferGroup holds the standalone "On sale" toggle, which has no heading of
// its own in the panel.
const OfferGroup = "Offer"

type FilterOption struct {
	Name       string  `json:"name"`
	TargetURL  *string `json:"url_to_apply"`
	IsSelected bool    `json:"is_selected"`
}

type FilterGroup struct {
	Name    string         `json:"group_name"`
	Options []FilterOption `json:"options"`
}

// FilterPanel is the parsed "Refine results" panel of one page load. Groups
// keep document order so lookups resolve to the first matching option.
type FilterPanel struct {
	Groups []*FilterGroup `json:"groups"`
}

func NewFilterPanel() *FilterPanel {
	return &FilterPanel{Groups: make([]*FilterGroup, 0)}
}

// SetGroup registers a group. A repeated name replaces the earlier group's
// options but keeps its position.
func (p *FilterPanel) SetGroup(name string, options []FilterOption) *FilterGroup {
	if options == nil {
		options = make([]FilterOption, 0)
	}
	if g := p.Group(name); g != nil {
		g.Options = options
		return g
	}
	g := &FilterGroup{Name: name, Options: options}
	p.Groups = append(p.Groups, g)
	return g
}

func (p *FilterPanel) Group(name string) *FilterGroup {
	for _, g := range p.Groups {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// LookupTarget resolves name to a navigation URL. Each group contributes
// only its first option with that name; a match without a link defers to
// the following groups.
func (p *FilterPanel) LookupTarget(name string) (string, bool) {
	for _, g := range p.Groups {
		for _, opt := range g.Options {
			if opt.Name != name {
				continue
			}
			if opt.TargetURL != nil && *opt.TargetURL != "" {
				return *opt.TargetURL, true
			}
			break
		}
	}
	return "", false
}

func (p *FilterPanel) Empty() bool {
	return len(p.Groups) == 0
}

// Selected lists the names of options currently marked as applied.
func (p *FilterPanel) Selected() []string {
	var names []string
	for _, g := range p.Groups {
		for _, opt := range g.Options {
			if opt.IsSelected {
				names = append(names, opt.Name)
			}
		}
	}
	return names
}
