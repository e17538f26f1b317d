// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
)

const (
	// jsonhookNamespace 是当前项目所有 Prometheus 指标使用的命名空间。
	jsonhookNamespace = "jsonhook"

	typeLabelName   = "type"
	resultLabelName = "result"
	moduleLabelName = "module"

	SuccessLabel      = "success"
	FailLabel         = "failure"
	UnconfiguredLabel = "unconfigured"
)

var (
	// microBuckets 为单次序列化耗时的桶划分，单位为微秒。
	// [1 2 4 8 ... 32768]
	microBuckets = prometheus.ExponentialBuckets(1, 2, 16)

	registerOnce     sync.Once
	metricRegisterer atomic.Pointer[prometheus.Registerer]
)

// GetRegisterer 返回全局 Prometheus Registerer。
// 如果尚未通过 Register 显式设置，则返回 prometheus.DefaultRegisterer。
func GetRegisterer() prometheus.Registerer {
	if r := metricRegisterer.Load(); r != nil {
		return *r
	}
	return prometheus.DefaultRegisterer
}

// Register 注册当前定义的所有指标，多次调用只有第一次生效。
func Register(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(SerializeTotal)
		r.MustRegister(SerializeLatency)
		r.MustRegister(RegisteredTypes)
		metricRegisterer.Store(&r)
	})
}
