package selector

// Attribute describes one supported attribute test on the component root.
// Suffix names the bucket the attribute-conditioned styles go to.
type Attribute struct {
	Kind   string
	Name   string
	Suffix string
}

// attributes is the fixed table of attribute tests that can be turned into
// attribute buckets. Keys are normalized attribute selectors.
var attributes = map[string]Attribute{
	`[type="checkbox"]`:      {Kind: "checkbox", Name: "type", Suffix: "Checkbox"},
	`[type="radio"]`:         {Kind: "radio", Name: "type", Suffix: "Radio"},
	`[href^="https"]`:        {Kind: "href-https", Name: "href", Suffix: "Https"},
	`[href^="http"]`:         {Kind: "href-http", Name: "href", Suffix: "Http"},
	`[target="_blank"]`:      {Kind: "target-blank", Name: "target", Suffix: "External"},
	`[disabled]`:             {Kind: "disabled", Name: "disabled", Suffix: "Disabled"},
	`[readonly]`:             {Kind: "readonly", Name: "readOnly", Suffix: "Readonly"},
	`[required]`:             {Kind: "required", Name: "required", Suffix: "Required"},
	`[aria-invalid="true"]`:  {Kind: "aria-invalid", Name: "aria-invalid", Suffix: "Invalid"},
	`[aria-current]`:         {Kind: "aria-current", Name: "aria-current", Suffix: "Current"},
	`[aria-expanded="true"]`: {Kind: "aria-expanded", Name: "aria-expanded", Suffix: "Expanded"},
	`[aria-selected="true"]`: {Kind: "aria-selected", Name: "aria-selected", Suffix: "Selected"},
	`[data-state="open"]`:    {Kind: "data-state-open", Name: "data-state", Suffix: "Open"},
	`[data-state="closed"]`:  {Kind: "data-state-closed", Name: "data-state", Suffix: "Closed"},
}

// LookupAttribute returns the table entry for a normalized attribute test.
func LookupAttribute(attr string) (Attribute, bool) {
	a, ok := attributes[attr]
	return a, ok
}
