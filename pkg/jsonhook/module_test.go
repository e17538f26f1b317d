package jsonhook

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
	"github.com/modern-go/reflect2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/jsonhook-go/pkg/log"
	"github.com/lk2023060901/jsonhook-go/pkg/metrics"
	"github.com/lk2023060901/jsonhook-go/pkg/util/merr"
)

type Money struct {
	Cents    int64
	Currency string
}

func (m *Money) Label() string { return m.Currency }

type labeled interface {
	Label() string
}

type tag struct {
	name string
}

func (t tag) Label() string { return t.name }

type Celsius float64

func (Celsius) MarshalJSON() ([]byte, error) { return []byte(`"from MarshalJSON"`), nil }

func writeMoney(stream *jsoniter.Stream) Consumer {
	return func(v any) error {
		m := v.(Money)
		stream.WriteString(fmt.Sprintf("%d.%02d %s", m.Cents/100, m.Cents%100, m.Currency))
		return nil
	}
}

func writeLabel(stream *jsoniter.Stream) Consumer {
	return func(v any) error {
		stream.WriteString("label:" + v.(labeled).Label())
		return nil
	}
}

type ModuleSuite struct {
	suite.Suite

	module *Module
}

func (s *ModuleSuite) SetupTest() {
	s.module = NewModule("test")
	lg, _, err := log.InitTestLogger(s.T(), &log.Config{Level: "debug"})
	s.Require().NoError(err)
	s.module.SetLogger(&log.MLogger{Logger: lg})
}

func (s *ModuleSuite) froze(cfg Config) jsoniter.API {
	api, err := s.module.Froze(cfg)
	s.Require().NoError(err)
	return api
}

func (s *ModuleSuite) marshal(api jsoniter.API, v any) string {
	data, err := api.Marshal(v)
	s.Require().NoError(err)
	return string(data)
}

func (s *ModuleSuite) TestTopLevelAndNested() {
	_, err := RegisterFunc[Money](s.module, writeMoney)
	s.Require().NoError(err)
	api := s.froze(DefaultConfig())

	s.Equal(`"12.34 EUR"`, s.marshal(api, Money{Cents: 1234, Currency: "EUR"}))
	s.Equal(`"0.05 USD"`, s.marshal(api, &Money{Cents: 5, Currency: "USD"}))

	type order struct {
		ID    int              `json:"id"`
		Price Money            `json:"price"`
		Tip   *Money           `json:"tip"`
		Items []Money          `json:"items"`
		Extra any              `json:"extra"`
		Fees  map[string]Money `json:"fees"`
	}
	out := s.marshal(api, order{
		ID:    1,
		Price: Money{Cents: 100, Currency: "EUR"},
		Items: []Money{{Cents: 1, Currency: "EUR"}, {Cents: 250, Currency: "GBP"}},
		Extra: Money{Cents: 7, Currency: "JPY"},
		Fees:  map[string]Money{"b": {Cents: 2, Currency: "EUR"}, "a": {Cents: 1, Currency: "EUR"}},
	})
	s.Equal(`{"id":1,"price":"1.00 EUR","tip":null,"items":["0.01 EUR","2.50 GBP"],"extra":"0.07 JPY","fees":{"a":"0.01 EUR","b":"0.02 EUR"}}`, out)
}

func (s *ModuleSuite) TestNilPointerSkipsConsumer() {
	var calls int32
	_, err := RegisterFunc[*tag](s.module, func(stream *jsoniter.Stream) Consumer {
		return func(v any) error {
			atomic.AddInt32(&calls, 1)
			stream.WriteRaw("1")
			return nil
		}
	})
	s.Require().NoError(err)
	api := s.froze(DefaultConfig())

	var p *tag
	s.Equal(`{"p":null}`, s.marshal(api, struct {
		P *tag `json:"p"`
	}{P: p}))
	s.Equal(`null`, s.marshal(api, p))
	s.Equal(`[null]`, s.marshal(api, []*tag{nil}))
	s.Equal(int32(0), atomic.LoadInt32(&calls))

	s.Equal(`1`, s.marshal(api, &tag{name: "x"}))
	s.Equal(int32(1), atomic.LoadInt32(&calls))
}

func (s *ModuleSuite) TestEmbeddedStructIsInlined() {
	var calls int32
	_, err := RegisterFunc[Money](s.module, func(stream *jsoniter.Stream) Consumer {
		return func(v any) error {
			atomic.AddInt32(&calls, 1)
			return writeMoney(stream)(v)
		}
	})
	s.Require().NoError(err)
	api := s.froze(DefaultConfig())

	// jsoniter 把匿名嵌入的结构体字段展开到外层，不会为 Money 本身创建编码器。
	s.Equal(`{"Cents":0,"Currency":""}`, s.marshal(api, struct{ Money }{}))
	s.Equal(int32(0), atomic.LoadInt32(&calls))

	// 带名字的字段仍然走自定义序列化。
	s.Equal(`{"Money":"0.00 EUR"}`, s.marshal(api, struct {
		Money Money
	}{Money: Money{Currency: "EUR"}}))
	s.Equal(int32(1), atomic.LoadInt32(&calls))
}

func (s *ModuleSuite) TestInterfaceRegistration() {
	_, err := RegisterFunc[labeled](s.module, writeLabel)
	s.Require().NoError(err)
	api := s.froze(DefaultConfig())

	s.Equal(`"label:a"`, s.marshal(api, tag{name: "a"}))
	s.Equal(`"label:b"`, s.marshal(api, &tag{name: "b"}))
	s.Equal(`["label:c"]`, s.marshal(api, []labeled{tag{name: "c"}}))
	// Money 只有指针方法实现了 labeled。
	s.Equal(`"label:EUR"`, s.marshal(api, &Money{Currency: "EUR"}))
	s.Equal(`{"Cents":0,"Currency":"EUR"}`, s.marshal(api, Money{Currency: "EUR"}))
}

func (s *ModuleSuite) TestExactBeatsInterface() {
	_, err := RegisterFunc[labeled](s.module, writeLabel)
	s.Require().NoError(err)
	_, err = RegisterFunc[Money](s.module, writeMoney)
	s.Require().NoError(err)
	api := s.froze(DefaultConfig())

	s.Equal(`"1.00 EUR"`, s.marshal(api, &Money{Cents: 100, Currency: "EUR"}))

	a, ok := s.module.Lookup(reflect.TypeOf(&Money{}))
	s.False(ok)
	s.Nil(a)
	a, ok = s.module.Lookup(reflect.TypeOf(tag{}))
	s.True(ok)
	s.NotNil(a)
	_, ok = s.module.Lookup(reflect.TypeOf((*labeled)(nil)).Elem())
	s.False(ok)
	_, ok = s.module.Lookup(nil)
	s.False(ok)
}

func (s *ModuleSuite) TestHookBeatsMarshalJSON() {
	_, err := RegisterFunc[Celsius](s.module, func(stream *jsoniter.Stream) Consumer {
		return func(v any) error {
			stream.WriteFloat64(float64(v.(Celsius)))
			return nil
		}
	})
	s.Require().NoError(err)
	api := s.froze(DefaultConfig())

	s.Equal(`21.5`, s.marshal(api, Celsius(21.5)))
	std, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(Celsius(21.5))
	s.Require().NoError(err)
	s.Equal(`"from MarshalJSON"`, string(std))
}

func (s *ModuleSuite) TestOmitEmpty() {
	_, err := RegisterFunc[Money](s.module, writeMoney, WithEmptyFunc(func(v any) bool {
		return v.(Money).Cents == 0
	}))
	s.Require().NoError(err)
	api := s.froze(DefaultConfig())

	type row struct {
		Price Money  `json:"price,omitempty"`
		Tip   *Money `json:"tip,omitempty"`
	}
	s.Equal(`{}`, s.marshal(api, row{Price: Money{Currency: "EUR"}}))
	s.Equal(`{"price":"0.01 EUR"}`, s.marshal(api, row{Price: Money{Cents: 1, Currency: "EUR"}}))
}

func (s *ModuleSuite) TestOmitEmptyWithoutFunc() {
	_, err := RegisterFunc[Money](s.module, writeMoney)
	s.Require().NoError(err)
	api := s.froze(DefaultConfig())

	type row struct {
		Price Money `json:"price,omitempty"`
	}
	s.Equal(`{"price":"0.00 EUR"}`, s.marshal(api, row{Price: Money{Currency: "EUR"}}))
}

func (s *ModuleSuite) TestConsumerErrorPropagates() {
	errSink := errors.New("sink refused value")
	_, err := RegisterFunc[Money](s.module, func(stream *jsoniter.Stream) Consumer {
		return func(v any) error { return errSink }
	})
	s.Require().NoError(err)
	api := s.froze(DefaultConfig())

	_, err = api.Marshal(Money{})
	s.True(err == errSink, "top-level error must be unchanged, got %v", err)

	// jsoniter 会在结构体字段上附加字段名。
	_, err = api.Marshal(struct{ Price Money }{})
	s.Require().Error(err)
	s.Contains(err.Error(), "Price")
	s.Contains(err.Error(), errSink.Error())
}

func (s *ModuleSuite) TestFirstErrorWins() {
	second := errors.New("second")
	first := errors.New("first")
	calls := 0
	_, err := RegisterFunc[Money](s.module, func(stream *jsoniter.Stream) Consumer {
		return func(v any) error {
			calls++
			if calls == 1 {
				return first
			}
			return second
		}
	})
	s.Require().NoError(err)
	api := s.froze(DefaultConfig())

	_, err = api.Marshal([]Money{{}, {}})
	s.Require().Error(err)
	s.Contains(err.Error(), "first")
	s.NotContains(err.Error(), "second")
}

func (s *ModuleSuite) TestUnconfiguredAdapter() {
	s.Require().NoError(Register[Money](s.module, &Adapter{}))
	api := s.froze(DefaultConfig())

	before := testutil.ToFloat64(metrics.SerializeTotal.WithLabelValues("jsonhook.Money", metrics.UnconfiguredLabel))
	_, err := api.Marshal(Money{})
	s.ErrorIs(err, merr.ErrAdapterUnconfigured)
	s.Equal(before+1, testutil.ToFloat64(metrics.SerializeTotal.WithLabelValues("jsonhook.Money", metrics.UnconfiguredLabel)))
}

func (s *ModuleSuite) TestReconfigureAfterFroze() {
	a, err := RegisterFunc[Money](s.module, writeMoney)
	s.Require().NoError(err)
	api := s.froze(DefaultConfig())
	s.Equal(`"1.00 EUR"`, s.marshal(api, Money{Cents: 100, Currency: "EUR"}))

	a.Configure(func(stream *jsoniter.Stream) Consumer {
		return func(v any) error {
			stream.WriteInt64(v.(Money).Cents)
			return nil
		}
	})
	s.Equal(`100`, s.marshal(api, Money{Cents: 100, Currency: "EUR"}))
}

func (s *ModuleSuite) TestRegisterErrors() {
	s.Require().NoError(Register[Money](s.module, NewAdapter(writeMoney)))
	s.ErrorIs(Register[Money](s.module, NewAdapter(writeMoney)), merr.ErrTypeAlreadyRegistered)
	s.ErrorIs(Register[tag](s.module, nil), merr.ErrParameterInvalid)
	s.ErrorIs(s.module.RegisterType(nil, NewAdapter(writeMoney)), merr.ErrParameterMissing)

	s.Require().NoError(Register[labeled](s.module, NewAdapter(writeLabel)))
	s.ErrorIs(Register[labeled](s.module, NewAdapter(writeLabel)), merr.ErrTypeAlreadyRegistered)

	s.False(s.module.Frozen())
	s.froze(DefaultConfig())
	s.True(s.module.Frozen())
	s.ErrorIs(Register[tag](s.module, NewAdapter(writeLabel)), merr.ErrModuleFrozen)
	_, err := RegisterFunc[Celsius](s.module, writeMoney)
	s.ErrorIs(err, merr.ErrModuleFrozen)

	s.Equal([]reflect.Type{
		reflect.TypeOf(Money{}),
		reflect.TypeOf((*labeled)(nil)).Elem(),
	}, s.module.Types())
	s.Equal(float64(2), testutil.ToFloat64(metrics.RegisteredTypes.WithLabelValues("test")))
}

func (s *ModuleSuite) TestFrozeRejectsInvalidConfig() {
	cfg := DefaultConfig()
	cfg.IndentionStep = -1
	_, err := s.module.Froze(cfg)
	s.ErrorIs(err, merr.ErrParameterInvalid)
	s.False(s.module.Frozen())
}

func (s *ModuleSuite) TestConfigOptions() {
	_, err := RegisterFunc[Money](s.module, writeMoney)
	s.Require().NoError(err)
	cfg := DefaultConfig()
	cfg.IndentionStep = 2
	api := s.froze(cfg)

	out := s.marshal(api, map[string]Money{"price": {Cents: 1234, Currency: "EUR"}})
	s.True(strings.HasPrefix(out, "{\n"))
	s.Contains(out, `"price": "12.34 EUR"`)
}

func (s *ModuleSuite) TestExtensionOnForeignAPI() {
	_, err := RegisterFunc[Money](s.module, writeMoney)
	s.Require().NoError(err)

	api := jsoniter.Config{}.Froze()
	api.RegisterExtension(s.module.Extension())
	s.Equal(`"0.10 EUR"`, s.marshal(api, Money{Cents: 10, Currency: "EUR"}))
	s.False(s.module.Frozen())
}

func (s *ModuleSuite) TestEncoderIsEmpty() {
	reg := &registration{adapter: NewAdapter(writeMoney), isEmpty: func(v any) bool {
		return v.(Money).Currency == ""
	}}
	enc := newEncoder(reflect2.TypeOf(Money{}), reg, s.module.encoderLogger())

	m := Money{}
	s.True(enc.IsEmpty(reflect2.PtrOf(&m)))
	m.Currency = "EUR"
	s.False(enc.IsEmpty(reflect2.PtrOf(&m)))

	stream := jsoniter.NewStream(jsoniter.ConfigDefault, nil, 32)
	enc.Encode(reflect2.PtrOf(&m), stream)
	s.NoError(stream.Error)
	s.Equal(`"0.00 EUR"`, string(stream.Buffer()))
}

func (s *ModuleSuite) TestConcurrentMarshal() {
	var calls int64
	_, err := RegisterFunc[Money](s.module, func(stream *jsoniter.Stream) Consumer {
		return func(v any) error {
			atomic.AddInt64(&calls, 1)
			stream.WriteInt64(v.(Money).Cents)
			return nil
		}
	})
	s.Require().NoError(err)
	api := s.froze(DefaultConfig())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				data, err := api.Marshal(Money{Cents: int64(i)})
				if err != nil || string(data) != fmt.Sprint(i) {
					s.T().Errorf("unexpected output %q, %v", data, err)
				}
			}
		}(i)
	}
	wg.Wait()
	s.Equal(int64(400), atomic.LoadInt64(&calls))
}

func TestModule(t *testing.T) {
	suite.Run(t, new(ModuleSuite))
}
