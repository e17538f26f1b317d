package jsonhook

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/lk2023060901/jsonhook-go/pkg/util/merr"
)

// ConfigKey 为配置文件中 Config 所在的 key。
const ConfigKey = "jsonhook"

// Config 为 Module 生成 jsoniter.API 时使用的编码选项。
type Config struct {
	EscapeHTML              bool   `json:"escape-html" mapstructure:"escape-html"`
	SortMapKeys             bool   `json:"sort-map-keys" mapstructure:"sort-map-keys"`
	IndentionStep           int    `json:"indention-step" mapstructure:"indention-step"`
	MarshalFloatWith6Digits bool   `json:"marshal-float-with-6-digits" mapstructure:"marshal-float-with-6-digits"`
	UseNumber               bool   `json:"use-number" mapstructure:"use-number"`
	TagKey                  string `json:"tag-key" mapstructure:"tag-key"`
	OnlyTaggedField         bool   `json:"only-tagged-field" mapstructure:"only-tagged-field"`
	CaseSensitive           bool   `json:"case-sensitive" mapstructure:"case-sensitive"`
	ValidateJsonRawMessage  bool   `json:"validate-json-raw-message" mapstructure:"validate-json-raw-message"`
}

// DefaultConfig 返回与 jsoniter.ConfigCompatibleWithStandardLibrary 等价的配置。
func DefaultConfig() Config {
	return Config{
		EscapeHTML:             true,
		SortMapKeys:            true,
		ValidateJsonRawMessage: true,
	}
}

// Validate 检查配置是否合法。
func (c Config) Validate() error {
	if c.IndentionStep < 0 {
		return merr.WrapErrParameterInvalid(0, c.IndentionStep, "indention-step must not be negative")
	}
	return nil
}

func (c Config) jsoniterConfig() jsoniter.Config {
	return jsoniter.Config{
		EscapeHTML:              c.EscapeHTML,
		SortMapKeys:             c.SortMapKeys,
		IndentionStep:           c.IndentionStep,
		MarshalFloatWith6Digits: c.MarshalFloatWith6Digits,
		UseNumber:               c.UseNumber,
		TagKey:                  c.TagKey,
		OnlyTaggedField:         c.OnlyTaggedField,
		CaseSensitive:           c.CaseSensitive,
		ValidateJsonRawMessage:  c.ValidateJsonRawMessage,
	}
}
