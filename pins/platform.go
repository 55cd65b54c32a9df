package pins

import (
	"fmt"
	"github.com/XANi/esphome-tcs34725/codegen"
	"github.com/XANi/esphome-tcs34725/schema"
	"sort"
	"strings"
)

// Platform describes internal GPIO rules of chip family
type Platform struct {
	Name    string
	Class   *codegen.Class
	Aliases map[string]int
	check   func(n int, m Mode) error
	pinExpr func(n int) codegen.Expression
}

func (p *Platform) Validate(n int, m Mode) error {
	return p.check(n, m)
}

func (p *Platform) PinExpression(n int) codegen.Expression {
	if p.pinExpr == nil {
		return codegen.IntLiteral(n)
	}
	return p.pinExpr(n)
}

const (
	ESP32   = "esp32"
	ESP8266 = "esp8266"
	RP2040  = "rp2040"
)

var platforms = map[string]*Platform{
	ESP32: {
		Name:  ESP32,
		Class: codegen.ESPHomeNS.Namespace("esp32").Class("ESP32InternalGPIOPin", InternalGPIOPin),
		check: checkESP32,
		pinExpr: func(n int) codegen.Expression {
			return codegen.RawExpression(fmt.Sprintf("::GPIO_NUM_%d", n))
		},
	},
	ESP8266: {
		Name:  ESP8266,
		Class: codegen.ESPHomeNS.Namespace("esp8266").Class("ESP8266GPIOPin", InternalGPIOPin),
		// NodeMCU / Wemos D1 board labels
		Aliases: map[string]int{
			"D0": 16, "D1": 5, "D2": 4, "D3": 0, "D4": 2, "D5": 14,
			"D6": 12, "D7": 13, "D8": 15, "RX": 3, "TX": 1, "A0": 17,
		},
		check: checkESP8266,
	},
	RP2040: {
		Name:  RP2040,
		Class: codegen.ESPHomeNS.Namespace("rp2040").Class("RP2040GPIOPin", InternalGPIOPin),
		check: checkRP2040,
	},
}

func Lookup(name string) (*Platform, error) {
	if name == "" {
		name = ESP32
	}
	p, ok := platforms[strings.ToLower(name)]
	if !ok {
		return nil, schema.Errorf("unknown platform '%s', valid options are %s", name, strings.Join(Platforms(), ", "))
	}
	return p, nil
}

func Platforms() []string {
	out := make([]string, 0, len(platforms))
	for k := range platforms {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func checkESP32(n int, m Mode) error {
	switch {
	case n < 0 || n > 39:
		return schema.Errorf("ESP32: invalid pin number %d, must be 0-39", n)
	case n == 20 || n == 24 || (n >= 28 && n <= 31):
		return schema.Errorf("ESP32: GPIO%d does not exist", n)
	case n >= 6 && n <= 11:
		return schema.Errorf("ESP32: GPIO%d (6-11) is used by the flash interface and cannot be used", n)
	case n >= 34 && n <= 39:
		if m.Output {
			return schema.Errorf("ESP32: GPIO%d (34-39) can only be used as an input pin", n)
		}
		if m.Pullup || m.Pulldown {
			return schema.Errorf("ESP32: GPIO%d (34-39) does not support pullups or pulldowns", n)
		}
	}
	return nil
}

func checkESP8266(n int, m Mode) error {
	switch {
	case n < 0 || n > 17:
		return schema.Errorf("ESP8266: invalid pin number %d, must be 0-17", n)
	case n >= 6 && n <= 11:
		return schema.Errorf("ESP8266: GPIO%d (6-11) is used by the flash interface and cannot be used", n)
	case n == 17:
		return schema.Errorf("ESP8266: GPIO17 (TOUT) is an analog-only pin on the ESP8266")
	case n == 16 && m.Pullup:
		return schema.Errorf("ESP8266: GPIO16 does not support pullup pin mode, please choose another pin")
	case n != 16 && m.Pulldown:
		return schema.Errorf("ESP8266: only GPIO16 supports pulldown pin mode")
	}
	return nil
}

func checkRP2040(n int, _ Mode) error {
	if n < 0 || n > 29 {
		return schema.Errorf("RP2040: invalid pin number %d, must be 0-29", n)
	}
	return nil
}
