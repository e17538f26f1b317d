// Package json 是对 bytedance/sonic 的一层薄封装，统一项目内的标准 JSON 编解码入口。
//
// 与 pkg/jsonhook 生成的 API 不同，这里不感知任何自定义序列化钩子。
package json

import (
	"io"

	"github.com/bytedance/sonic"
)

// api 采用与 encoding/json 行为一致的配置。
var api = sonic.ConfigStd

// Marshal 将 v 编码为 JSON。
func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

// MarshalIndent 以 prefix/indent 缩进编码 v。
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

func MarshalToString(v any) (string, error) {
	return api.MarshalToString(v)
}

// Unmarshal 将 data 解码到 v。
func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

// Valid 判断 data 是否为合法 JSON。
func Valid(data []byte) bool {
	return api.Valid(data)
}

// NewEncoder 返回写入 w 的编码器。
func NewEncoder(w io.Writer) sonic.Encoder {
	return api.NewEncoder(w)
}

// NewDecoder 返回读取 r 的解码器。
func NewDecoder(r io.Reader) sonic.Decoder {
	return api.NewDecoder(r)
}
