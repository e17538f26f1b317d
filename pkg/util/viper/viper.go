package viper

import (
	"path/filepath"
	"strings"

	spfviper "github.com/spf13/viper"
)

// Config 封装 spf13/viper 实例，对外提供精简的 YAML/JSON 配置加载接口。
type Config struct {
	v *spfviper.Viper
}

// New 创建一个空的 Config。
// 未加载文件时，Unmarshal/UnmarshalKey 只会看到默认值与环境变量。
func New() *Config {
	return &Config{
		v: spfviper.New(),
	}
}

func (c *Config) viper() *spfviper.Viper {
	if c.v == nil {
		c.v = spfviper.New()
	}
	return c.v
}

// SetEnvPrefix 开启环境变量覆盖。
// 形如 jsonhook.indention-step 的 key 对应环境变量 PREFIX_JSONHOOK_INDENTION_STEP，
// 其中 "." 与 "-" 被替换为 "_"。
// 环境变量只作用于 Unmarshal 与按叶子 key 读取，UnmarshalKey 读取的是整段子树。
func (c *Config) SetEnvPrefix(prefix string) {
	v := c.viper()
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// SetDefault 为 key 设置默认值，优先级低于文件与环境变量。
func (c *Config) SetDefault(key string, value any) {
	c.viper().SetDefault(key, value)
}

// LoadFile 将 YAML 或 JSON 配置文件加载到 Config 中。
// 文件类型通过扩展名（.yaml/.yml/.json）推断。
func (c *Config) LoadFile(path string) error {
	v := c.viper()
	v.SetConfigFile(path)

	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		v.SetConfigType("yaml")
	case ".json":
		v.SetConfigType("json")
	default:
		// 交给 viper 推断，失败时由 ReadInConfig 返回错误。
	}

	return v.ReadInConfig()
}

// IsSet 判断 key 是否出现在文件、环境变量或默认值中。
func (c *Config) IsSet(key string) bool {
	return c.viper().IsSet(key)
}

// Unmarshal 将完整配置反序列化到 dst。
// dst 应为结构体或 map 的指针。
func (c *Config) Unmarshal(dst interface{}) error {
	return c.viper().Unmarshal(dst)
}

// UnmarshalKey 将指定 key 对应的子配置反序列化到 dst。
// dst 应为结构体或 map 的指针。
func (c *Config) UnmarshalKey(key string, dst interface{}) error {
	return c.viper().UnmarshalKey(key, dst)
}
