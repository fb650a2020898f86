package main

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/wattwise/wattwise/pkg/common"
	"github.com/wattwise/wattwise/pkg/log"
	"github.com/wattwise/wattwise/pkg/storage"
	"github.com/wattwise/wattwise/pkg/types"
)

const (
	batteryCapacityKWH = 13.5
	homeAvgKWH         = 1.2
	solarPeakKWH       = 6.0
)

// sink records a single reading.
type sink func(ctx context.Context, r types.Reading) error

func main() {
	s := storage.Configured()
	days := lflag.Int("seed-days", 7, "Number of days of hourly readings to generate")
	seed := lflag.Int("seed-seed", 1, "Seed for the random source")
	target := lflag.String("seed-target", "", "Base URL of a running server to post readings to instead of writing to storage")
	lflag.Configure()

	ctx := context.Background()
	defer s.Close()

	var record sink
	if *target != "" {
		client := common.HTTPClient(10 * time.Second)
		url := strings.TrimSuffix(*target, "/") + "/api/readings"
		record = func(ctx context.Context, r types.Reading) error {
			return common.PostJSON(ctx, client, url, r, nil)
		}
	} else {
		record = func(ctx context.Context, r types.Reading) error {
			_, err := s.AppendReading(ctx, r)
			return err
		}
	}

	log.Ctx(ctx).InfoContext(ctx, "seeding readings", "days", *days, "target", *target)

	rng := rand.New(rand.NewPCG(uint64(*seed), uint64(*seed)))
	now := time.Now().UTC().Truncate(time.Hour)
	start := now.Add(-time.Duration(*days) * 24 * time.Hour)
	level := batteryCapacityKWH / 2

	var n int
	for t := start; t.Before(now); t = t.Add(time.Hour) {
		r := generate(rng, t, level)
		level = r.BatteryLevel

		if err := record(ctx, r); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to seed reading", "error", err)
			os.Exit(1)
		}
		n++
		if t.Hour() == 12 {
			fmt.Printf("Seeded %s: production %.2fkWh, consumption %.2fkWh, battery %.1fkWh (%s)\n",
				t.Format(time.DateTime), r.ProductionKWH, r.ConsumptionKWH, r.BatteryLevel, r.Weather.Condition)
		}
	}

	log.Ctx(ctx).InfoContext(ctx, "seeded readings successfully", "count", n)
}

// generate simulates an hour of a home with rooftop solar and a battery that
// absorbs the surplus and covers the deficit.
func generate(rng *rand.Rand, t time.Time, level float64) types.Reading {
	hour := t.Hour()

	weather := types.Weather{
		Temperature: 15 + 8*math.Sin(float64(hour-9)*math.Pi/12) + rng.NormFloat64(),
		CloudCover:  math.Min(1, math.Max(0, 0.3+rng.NormFloat64()*0.25)),
	}
	switch {
	case weather.CloudCover > 0.7:
		weather.Condition = "cloudy"
	case weather.CloudCover > 0.3:
		weather.Condition = "partly cloudy"
	default:
		weather.Condition = "clear"
	}

	// solar (bell curve)
	production := 0.0
	if hour > 6 && hour < 19 {
		dist := float64(hour) - 12.5
		production = solarPeakKWH * math.Exp(-(dist*dist)/8.0) * (1 - 0.75*weather.CloudCover)
	}

	consumption := homeAvgKWH * (0.8 + rng.Float64()*0.4)
	if hour >= 7 && hour < 9 {
		consumption += 0.8 // breakfast
	} else if hour >= 17 && hour < 22 {
		consumption += 2.0 // evening peak
	}

	level = math.Min(batteryCapacityKWH, math.Max(0, level+production-consumption))

	return types.Reading{
		Timestamp:      t,
		ProductionKWH:  math.Round(production*1000) / 1000,
		ConsumptionKWH: math.Round(consumption*1000) / 1000,
		BatteryLevel:   math.Round(level*1000) / 1000,
		Weather:        weather,
	}
}
