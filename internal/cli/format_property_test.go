package cli

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

var indianGrouping = regexp.MustCompile(`^(\d{1,2},)*\d{1,3}$`)

func TestProperty_IndianCurrencyFormatting(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("groups digits 3 then 2 with two decimals", prop.ForAll(
		func(amount float64) bool {
			s := strings.TrimPrefix(FormatIndianCurrency(amount), "-")
			if !strings.HasPrefix(s, "₹") {
				return false
			}
			whole, frac, ok := strings.Cut(strings.TrimPrefix(s, "₹"), ".")
			return ok && len(frac) == 2 && indianGrouping.MatchString(whole)
		},
		gen.Float64Range(-1e12, 1e12),
	))

	properties.Property("strips back to the rounded value", prop.ForAll(
		func(amount float64) bool {
			s := FormatIndianCurrency(amount)
			s = strings.NewReplacer("₹", "", ",", "").Replace(s)
			parsed, err := strconv.ParseFloat(s, 64)
			return err == nil && math.Abs(parsed-math.Round(amount*100)/100) <= 0.01
		},
		gen.Float64Range(-1e9, 1e9),
	))

	properties.Property("signs positive percentages", prop.ForAll(
		func(v float64) bool {
			s := FormatPercent(v)
			return strings.HasSuffix(s, "%") && (v <= 0 || strings.HasPrefix(s, "+"))
		},
		gen.Float64Range(-100, 100),
	))

	properties.TestingRun(t)
}

func TestFormatExamples(t *testing.T) {
	currency := map[float64]string{
		0:           "₹0.00",
		999:         "₹999.00",
		1000:        "₹1,000.00",
		100000:      "₹1,00,000.00",
		10000000:    "₹1,00,00,000.00",
		-1234.56:    "-₹1,234.56",
		12345678.90: "₹1,23,45,678.90",
	}
	for in, want := range currency {
		assert.Equal(t, want, FormatIndianCurrency(in))
	}

	assert.Equal(t, "+₹480.00", FormatPnL(480))
	assert.Equal(t, "-₹55.50", FormatPnL(-55.5))
	assert.Equal(t, "0.00%", FormatPercent(0))
	assert.Equal(t, "-2.50%", FormatPercent(-2.5))
	assert.Equal(t, "1,50,000", FormatQuantity(150000))
	assert.Equal(t, "2.50 L", FormatCompact(250000))
	assert.Equal(t, "1.20 Cr", FormatCompact(12000000))
	assert.Equal(t, "12.50 K", FormatVolume(12500))
	assert.Equal(t, "∞", FormatRatio(math.Inf(1)))
	assert.Equal(t, "1.75", FormatRatio(1.75))
	assert.Equal(t, "Revenge...", TruncateString("Revenge trading detected", 10))
}
