package entity

import "strings"

// Settings is the user-supplied credentials and specification text required before
// test generation can run. There is exactly one current value per process.
type Settings struct {
	AnthropicAPIKey      string `json:"anthropicApiKey" yaml:"anthropicApiKey" bson:"anthropic_api_key"`
	SentryAPIKey         string `json:"sentryApiKey" yaml:"sentryApiKey" bson:"sentry_api_key"`
	UmamiAPIKey          string `json:"umamiAPIKey" yaml:"umamiAPIKey" bson:"umami_api_key"`
	UmamiWebsiteID       string `json:"umamiWebsiteId" yaml:"umamiWebsiteId" bson:"umami_website_id"`
	TechSpecification    string `json:"techSpecification" yaml:"techSpecification" bson:"tech_specification"`
	ProductSpecification string `json:"productSpecification" yaml:"productSpecification" bson:"product_specification"`
}

// SettingsPatch is a partial update. A nil field leaves the current value untouched,
// a non-nil field (including an empty string) replaces it.
type SettingsPatch struct {
	AnthropicAPIKey      *string `json:"anthropicApiKey,omitempty"`
	SentryAPIKey         *string `json:"sentryApiKey,omitempty"`
	UmamiAPIKey          *string `json:"umamiAPIKey,omitempty"`
	UmamiWebsiteID       *string `json:"umamiWebsiteId,omitempty"`
	TechSpecification    *string `json:"techSpecification,omitempty"`
	ProductSpecification *string `json:"productSpecification,omitempty"`
}

// Apply overlays p onto s and returns the merged value.
func (s Settings) Apply(p SettingsPatch) Settings {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&s.AnthropicAPIKey, p.AnthropicAPIKey)
	set(&s.SentryAPIKey, p.SentryAPIKey)
	set(&s.UmamiAPIKey, p.UmamiAPIKey)
	set(&s.UmamiWebsiteID, p.UmamiWebsiteID)
	set(&s.TechSpecification, p.TechSpecification)
	set(&s.ProductSpecification, p.ProductSpecification)
	return s
}

// Fields returns the bson field names and values carried by the patch.
func (p SettingsPatch) Fields() map[string]string {
	out := make(map[string]string)
	add := func(name string, v *string) {
		if v != nil {
			out[name] = *v
		}
	}
	add("anthropic_api_key", p.AnthropicAPIKey)
	add("sentry_api_key", p.SentryAPIKey)
	add("umami_api_key", p.UmamiAPIKey)
	add("umami_website_id", p.UmamiWebsiteID)
	add("tech_specification", p.TechSpecification)
	add("product_specification", p.ProductSpecification)
	return out
}

// IsEmpty reports whether the patch carries no fields.
func (p SettingsPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// MissingRequired lists the JSON names of required fields that are blank.
func (s Settings) MissingRequired() []string {
	var missing []string
	if strings.TrimSpace(s.AnthropicAPIKey) == "" {
		missing = append(missing, "anthropicApiKey")
	}
	if strings.TrimSpace(s.SentryAPIKey) == "" {
		missing = append(missing, "sentryApiKey")
	}
	if strings.TrimSpace(s.TechSpecification) == "" {
		missing = append(missing, "techSpecification")
	}
	return missing
}
