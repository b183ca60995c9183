package campus

import (
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"time"
)

// Forecast is a mock daily forecast.
type Forecast struct {
	Date       string `json:"date"`
	Weather    string `json:"weather"`
	TempHigh   int    `json:"temp_high"`
	TempLow    int    `json:"temp_low"`
	RainProb   int    `json:"rain_prob"`
	Suggestion string `json:"suggestion"`
}

var conditions = []string{"晴", "多云", "阴", "小雨", "大雨", "雷阵雨"}

// baseTemp is a mild spring or autumn day.
const baseTemp = 20

// Forecaster produces mock forecasts. The same date always yields the
// same forecast.
type Forecaster struct {
	now func() time.Time
}

// NewForecaster creates a forecaster. A nil now uses time.Now.
func NewForecaster(now func() time.Time) *Forecaster {
	return &Forecaster{now: nowOr(now)}
}

// Query returns the forecast for a date.
func (f *Forecaster) Query(date string) (Forecast, error) {
	day, err := ResolveDate(date, f.now())
	if err != nil {
		return Forecast{}, err
	}

	h := fnv.New64a()
	h.Write([]byte(day))
	rng := rand.New(rand.NewPCG(h.Sum64(), 0x5ec))
	between := func(lo, hi int) int { return lo + rng.IntN(hi-lo+1) }

	fc := Forecast{Date: day, Weather: conditions[rng.IntN(len(conditions))]}
	switch {
	case strings.Contains(fc.Weather, "雨"):
		fc.TempHigh = baseTemp - between(2, 5)
		fc.TempLow = fc.TempHigh - between(5, 8)
		fc.RainProb = between(60, 95)
	case fc.Weather == "晴":
		fc.TempHigh = baseTemp + between(3, 8)
		fc.TempLow = fc.TempHigh - between(10, 15)
		fc.RainProb = between(0, 10)
	default:
		fc.TempHigh = baseTemp
		fc.TempLow = baseTemp - between(5, 10)
		fc.RainProb = between(10, 40)
	}
	fc.Suggestion = suggestion(fc)
	return fc, nil
}

func suggestion(fc Forecast) string {
	switch {
	case fc.RainProb > 50:
		return "记得带伞哦！"
	case fc.TempHigh > 30:
		return "天气较热，注意防暑。"
	case fc.TempLow < 10:
		return "天气转凉，多穿点衣服。"
	default:
		return "天气不错，适合出门。"
	}
}
