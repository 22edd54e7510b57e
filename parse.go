package menu

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigParseError wraps a parse failure with enough position to fix the
// document.
type ConfigParseError struct {
	Path string
	Menu string
	Item string
	Err  error
}

func (e *ConfigParseError) Error() string {
	var b strings.Builder
	b.WriteString("menu: parsing")
	if e.Path != "" {
		fmt.Fprintf(&b, " %s", e.Path)
	}
	if e.Menu != "" {
		fmt.Fprintf(&b, " menu %q", e.Menu)
	}
	if e.Item != "" {
		fmt.Fprintf(&b, " item %q", e.Item)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *ConfigParseError) Unwrap() error { return e.Err }

// menuDocument is the top-level shape of a menu definition file.
type menuDocument struct {
	Menus map[string]*menuDoc `yaml:"menus"`
}

type menuDoc struct {
	Title        string                 `yaml:"title"`
	Size         int                    `yaml:"size"`
	Shared       bool                   `yaml:"shared"`
	TitleRefresh string                 `yaml:"title-refresh"`
	Items        map[string]*itemDoc    `yaml:"items"`
	Pagination   *paginationDoc         `yaml:"pagination"`
	Tabs         []*tabDoc              `yaml:"tabs"`
	Persistence  *persistenceDoc        `yaml:"persistence"`
	Variants     map[string]*variantDoc `yaml:"variants"`
}

type itemDoc struct {
	Slots               slotList            `yaml:"slots"`
	Type                string              `yaml:"type"`
	Material            string              `yaml:"material"`
	Name                string              `yaml:"name"`
	Lore                []string            `yaml:"lore"`
	Amount              int                 `yaml:"amount"`
	Glint               bool                `yaml:"glint"`
	FillEmpty           bool                `yaml:"fill-empty"`
	AllowDrag           bool                `yaml:"allow-drag"`
	NoCache             bool                `yaml:"no-cache"`
	DynamicPlaceholders []string            `yaml:"dynamic-placeholders"`
	Placeholders        map[string]string   `yaml:"placeholders"`
	ViewConditions      []string            `yaml:"view-conditions"`
	ClickConditions     []string            `yaml:"click-conditions"`
	Actions             []string            `yaml:"actions"`
	ClickActions        map[string][]string `yaml:"click-actions"`
	Conditional         *conditionalDoc     `yaml:"conditional"`
	Variants            []*variantDoc       `yaml:"variants"`
	VariantRefs         []string            `yaml:"variant-refs"`
}

type variantDoc struct {
	ID        string   `yaml:"id"`
	Condition string   `yaml:"condition"`
	Item      *itemDoc `yaml:"item"`
}

type conditionalDoc struct {
	Conditions []string `yaml:"conditions"`
	Success    []string `yaml:"success"`
	Fail       []string `yaml:"fail"`
}

type paginationDoc struct {
	Mode          string   `yaml:"mode"`
	Layout        []string `yaml:"layout"`
	ContentSlots  slotList `yaml:"content-slots"`
	PrevSlots     slotList `yaml:"prev-slots"`
	NextSlots     slotList `yaml:"next-slots"`
	ItemsPerPage  int      `yaml:"items-per-page"`
	Navigation    bool     `yaml:"navigation"`
	PrevItem      *itemDoc `yaml:"prev-item"`
	NextItem      *itemDoc `yaml:"next-item"`
	ContentItem   *itemDoc `yaml:"content-item"`
	ContentSource string   `yaml:"content-source"`
}

type tabDoc struct {
	ID      string              `yaml:"id"`
	Default bool                `yaml:"default"`
	Items   map[string]*itemDoc `yaml:"items"`
}

type persistenceDoc struct {
	Enabled     bool   `yaml:"enabled"`
	SaveOnClose bool   `yaml:"save-on-close"`
	AutoSave    string `yaml:"auto-save"`
}

// slotList is a cell-range expression: a single cell ("13"), an inclusive
// range ("0-8"), a semicolon list ("0;4;8") or any combination
// ("0-8;17;26"). A plain YAML integer or a sequence of integers also works.
type slotList []int

func (s *slotList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		slots, err := parseSlots(node.Value)
		if err != nil {
			return err
		}
		*s = slots
		return nil
	case yaml.SequenceNode:
		var raw []string
		if err := node.Decode(&raw); err != nil {
			return err
		}
		var slots []int
		for _, expr := range raw {
			part, err := parseSlots(expr)
			if err != nil {
				return err
			}
			slots = append(slots, part...)
		}
		*s = slots
		return nil
	default:
		return fmt.Errorf("slots must be a cell-range expression or list")
	}
}

// parseSlots expands a cell-range expression into a cell list, preserving
// order and dropping duplicates.
func parseSlots(expr string) ([]int, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	var (
		out  []int
		seen = make(map[int]bool)
	)
	add := func(n int) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	for _, part := range strings.Split(expr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return nil, fmt.Errorf("bad cell range %q: %w", part, err)
			}
			end, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				return nil, fmt.Errorf("bad cell range %q: %w", part, err)
			}
			if end < start {
				return nil, fmt.Errorf("bad cell range %q: end before start", part)
			}
			for n := start; n <= end; n++ {
				add(n)
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("bad cell %q: %w", part, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("bad cell %q: negative", part)
		}
		add(n)
	}
	return out, nil
}

// ParseFile reads a YAML menu definition file. A non-empty namespace
// prefixes every menu id as "namespace:id". Malformed items within a menu
// are logged and skipped so one bad entry does not take the file down; a
// malformed document or menu-level field fails the whole file.
func ParseFile(path, namespace string) ([]*MenuConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("menu: reading %s: %w", path, err)
	}
	return Parse(data, path, namespace)
}

// Parse decodes a YAML menu document. The path is used for error reporting
// only.
func Parse(data []byte, path, namespace string) ([]*MenuConfig, error) {
	var doc menuDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigParseError{Path: path, Err: err}
	}
	if len(doc.Menus) == 0 {
		return nil, &ConfigParseError{Path: path, Err: fmt.Errorf("no menus defined")}
	}

	var configs []*MenuConfig
	for id, md := range doc.Menus {
		cfg, err := md.build(id, path, namespace)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func (d *menuDoc) build(id, path, namespace string) (*MenuConfig, error) {
	fullID := id
	if namespace != "" {
		fullID = namespace + ":" + id
	}
	cfg := &MenuConfig{
		ID:     fullID,
		Title:  d.Title,
		Size:   d.Size,
		Shared: d.Shared,
	}
	if cfg.Size <= 0 {
		return nil, &ConfigParseError{Path: path, Menu: id, Err: fmt.Errorf("size must be positive")}
	}
	if d.TitleRefresh != "" {
		interval, err := time.ParseDuration(d.TitleRefresh)
		if err != nil {
			return nil, &ConfigParseError{Path: path, Menu: id, Err: fmt.Errorf("title-refresh: %w", err)}
		}
		cfg.TitleRefresh = interval
	}

	cfg.Items = buildItems(d.Items, path, id, "")
	if d.Pagination != nil {
		pg, err := d.Pagination.build(path, id)
		if err != nil {
			return nil, err
		}
		cfg.Pagination = pg
	}
	for _, td := range d.Tabs {
		if td.ID == "" {
			return nil, &ConfigParseError{Path: path, Menu: id, Err: fmt.Errorf("tab without id")}
		}
		cfg.Tabs = append(cfg.Tabs, &TabConfig{
			ID:      td.ID,
			Default: td.Default,
			Items:   buildItems(td.Items, path, id, td.ID),
		})
	}
	if d.Persistence != nil {
		p := &PersistenceConfig{
			Enabled:     d.Persistence.Enabled,
			SaveOnClose: d.Persistence.SaveOnClose,
		}
		if d.Persistence.AutoSave != "" {
			interval, err := time.ParseDuration(d.Persistence.AutoSave)
			if err != nil {
				return nil, &ConfigParseError{Path: path, Menu: id, Err: fmt.Errorf("auto-save: %w", err)}
			}
			p.AutoSave = interval
		}
		cfg.Persistence = p
	}
	if len(d.Variants) > 0 {
		cfg.VariantTemplates = make(map[string]*VariantConfig, len(d.Variants))
		for name, vd := range d.Variants {
			v := vd.build(name)
			cfg.VariantTemplates[name] = v
		}
	}
	return cfg, nil
}

// buildItems converts a document's item map, logging and skipping entries
// that fail validation.
func buildItems(docs map[string]*itemDoc, path, menuID, tabID string) []*ItemConfig {
	var items []*ItemConfig
	for key, id := range docs {
		item, err := id.build(key)
		if err != nil {
			slog.Warn("menu: skipping malformed item",
				"path", path,
				"menu", menuID,
				"tab", tabID,
				"item", key,
				"error", err)
			continue
		}
		items = append(items, item)
	}
	return items
}

func (d *itemDoc) build(key string) (*ItemConfig, error) {
	item, err := d.construct(key)
	if err != nil {
		return nil, err
	}
	if item.Material == "" && !item.FillEmpty {
		return nil, fmt.Errorf("no material")
	}
	return item, nil
}

// construct builds the config without the addressable-item validation.
func (d *itemDoc) construct(key string) (*ItemConfig, error) {
	item := &ItemConfig{
		Key:                 key,
		Slots:               d.Slots,
		Type:                d.Type,
		Material:            d.Material,
		Name:                d.Name,
		Lore:                d.Lore,
		Amount:              d.Amount,
		Glint:               d.Glint,
		FillEmpty:           d.FillEmpty,
		AllowDrag:           d.AllowDrag,
		NoCache:             d.NoCache,
		DynamicPlaceholders: d.DynamicPlaceholders,
		Placeholders:        d.Placeholders,
		ViewConditions:      d.ViewConditions,
		ClickConditions:     d.ClickConditions,
		Actions:             d.Actions,
		VariantRefs:         d.VariantRefs,
	}
	if len(d.ClickActions) > 0 {
		item.ClickActions = make(map[ClickKind][]string, len(d.ClickActions))
		for kind, actions := range d.ClickActions {
			ck, err := parseClickKind(kind)
			if err != nil {
				return item, err
			}
			item.ClickActions[ck] = actions
		}
	}
	if d.Conditional != nil {
		item.Conditional = &ConditionalActions{
			Conditions: d.Conditional.Conditions,
			Success:    d.Conditional.Success,
			Fail:       d.Conditional.Fail,
		}
	}
	for _, vd := range d.Variants {
		item.Variants = append(item.Variants, vd.build(vd.ID))
	}
	return item, nil
}

func (d *variantDoc) build(id string) *VariantConfig {
	v := &VariantConfig{ID: id, Condition: d.Condition}
	if d.ID != "" {
		v.ID = d.ID
	}
	if d.Item != nil {
		// Variant overrides skip the validation an addressable item gets:
		// zero fields mean inherit.
		v.Item = d.Item.asOverride()
	}
	return v
}

// asOverride converts without the material validation; zero fields inherit
// from the base at merge time.
func (d *itemDoc) asOverride() *ItemConfig {
	item, err := d.construct("")
	if err != nil {
		slog.Warn("menu: malformed click kind in variant override", "error", err)
	}
	return item
}

func (d *paginationDoc) build(path, menuID string) (*PaginationConfig, error) {
	pg := &PaginationConfig{
		Layout:        d.Layout,
		ContentSlots:  d.ContentSlots,
		PrevSlots:     d.PrevSlots,
		NextSlots:     d.NextSlots,
		ItemsPerPage:  d.ItemsPerPage,
		Navigation:    d.Navigation,
		ContentSource: d.ContentSource,
	}
	switch strings.ToLower(strings.TrimSpace(d.Mode)) {
	case "", "native":
		pg.Mode = PageNative
	case "layout":
		pg.Mode = PageLayout
	case "hybrid":
		pg.Mode = PageHybrid
	default:
		return nil, &ConfigParseError{Path: path, Menu: menuID, Err: fmt.Errorf("unknown pagination mode %q", d.Mode)}
	}
	if pg.Mode == PageLayout && len(pg.Layout) == 0 {
		return nil, &ConfigParseError{Path: path, Menu: menuID, Err: fmt.Errorf("layout pagination without layout")}
	}
	build := func(doc *itemDoc, key string) *ItemConfig {
		if doc == nil {
			return nil
		}
		item, err := doc.build(key)
		if err != nil {
			slog.Warn("menu: skipping malformed pagination item",
				"path", path, "menu", menuID, "item", key, "error", err)
			return nil
		}
		return item
	}
	pg.PrevItem = build(d.PrevItem, "__prev")
	pg.NextItem = build(d.NextItem, "__next")
	pg.ContentItem = build(d.ContentItem, "__content")
	return pg, nil
}

func parseClickKind(s string) (ClickKind, error) {
	switch ClickKind(strings.ToLower(strings.TrimSpace(s))) {
	case ClickLeft:
		return ClickLeft, nil
	case ClickRight:
		return ClickRight, nil
	case ClickShiftLeft:
		return ClickShiftLeft, nil
	case ClickShiftRight:
		return ClickShiftRight, nil
	case ClickMiddle:
		return ClickMiddle, nil
	case ClickDouble:
		return ClickDouble, nil
	case ClickDrop:
		return ClickDrop, nil
	case ClickAny:
		return ClickAny, nil
	default:
		return "", fmt.Errorf("unknown click kind %q", s)
	}
}
