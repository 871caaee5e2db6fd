package reply

import (
	"context"
	"regexp"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// contactPatterns match requests for off-platform contact details. Checked
// before any generative path so these never consume a model call.
var contactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(insta|instagram|facebook|twitter|snapchat|telegram|socials|social media)\b`),
	regexp.MustCompile(`(?i)\b(phone|number|call me|whatsapp|whats app|whatsap)\b`),
	regexp.MustCompile(`(?i)\b(your (contact|email|address)|contact details)\b`),
}

type PrivacyProviderConfig struct {
	Deflection string `mapstructure:"deflection" default:"I don't share personal details online, hope you understand!" validate:"required"`
}

// PrivacyProvider answers contact-detail requests with a fixed deflection
// line. Deterministic, always first in the chain.
type PrivacyProvider struct {
	config *PrivacyProviderConfig
}

// NewPrivacyProvider creates a new PrivacyProvider.
func NewPrivacyProvider(settings map[string]any) (*PrivacyProvider, error) {
	var config PrivacyProviderConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &PrivacyProvider{config: &config}, nil
}

// Reply returns the deflection line when the text asks for contact details.
func (p *PrivacyProvider) Reply(ctx context.Context, req *Request) (string, bool, error) {
	if !IsContactRequest(req.Text) {
		return "", false, nil
	}
	return p.config.Deflection, true, nil
}

// Name returns the provider name.
func (p *PrivacyProvider) Name() string {
	return "privacy"
}

// IsContactRequest reports whether the text asks for social handles, phone
// numbers or other contact details.
func IsContactRequest(text string) bool {
	for _, re := range contactPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
