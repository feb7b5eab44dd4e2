package stattype

// ParamOnEmpty is the Params key holding a Configuration request's fallback
// value for when the key never appears in the file or arrives empty.
const ParamOnEmpty = "on_empty"

// configurationStat stores the first non-empty free-text value observed for
// a configuration key, falling back to a configured default.
type configurationStat struct {
	name    string
	onEmpty string
	value   string
	set     bool
}

func newConfiguration(cfg Config) *configurationStat {
	return &configurationStat{
		name:    cfg.Name,
		onEmpty: cfg.Params[ParamOnEmpty],
	}
}

func (c *configurationStat) Name() string { return c.name }

func (c *configurationStat) Kind() Kind { return Configuration }

func (c *configurationStat) Accumulate(_, raw string) error {
	if c.set || raw == "" {
		return nil
	}

	c.value = raw
	c.set = true

	return nil
}

// Balance is a no-op: configuration values carry no entries.
func (c *configurationStat) Balance(_ []string) {}

// Reduce is a no-op: the first non-empty value wins.
func (c *configurationStat) Reduce() {}

func (c *configurationStat) Columns() []Column {
	val := c.value
	if !c.set {
		val = c.onEmpty
	}

	return []Column{{Name: c.name, Value: val}}
}
