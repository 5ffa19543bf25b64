package dataset

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	syntheticPitches = []string{"4-Seam Fastball", "Slider", "Changeup", "Curveball", "Sinker"}
	syntheticStands  = []string{"L", "R"}
)

// Synthetic generates n swing-like rows following SwingSchema. Pitches in the
// strike zone and two-strike counts are swung at more often. About 2% of the
// feature cells are left missing. The same seed always yields the same data.
func Synthetic(n int, seed uint64) *Dataset {
	schema := SwingSchema()
	src := rand.NewPCG(seed, 0x5eed)
	rng := rand.New(src)

	numeric := mat.NewDense(n, len(schema.Numeric), nil)
	categorical := make([][]string, n)
	labels := make([]float64, n)

	col := make(map[string]int, len(schema.Numeric))
	for j, name := range schema.Numeric {
		col[name] = j
	}

	for i := 0; i < n; i++ {
		row := map[string]float64{
			"release_extension": 6.3 + 0.4*rng.NormFloat64(),
			"release_pos_x":     -1.5 + 0.8*rng.NormFloat64(),
			"release_pos_y":     54.2 + 0.4*rng.NormFloat64(),
			"release_pos_z":     5.8 + 0.3*rng.NormFloat64(),
			"release_speed":     88 + 5*rng.NormFloat64(),
			"release_spin_rate": 2300 + 250*rng.NormFloat64(),
			"spin_axis":         rng.Float64() * 360,
			"plate_x":           0.8 * rng.NormFloat64(),
			"plate_z":           2.4 + 0.9*rng.NormFloat64(),
			"pfx_x":             0.6 * rng.NormFloat64(),
			"pfx_z":             0.8 * rng.NormFloat64(),
			"balls":             float64(rng.IntN(4)),
			"strikes":           float64(rng.IntN(3)),
			"outs_when_up":      float64(rng.IntN(3)),
			"sz_top":            3.4 + 0.1*rng.NormFloat64(),
			"sz_bot":            1.6 + 0.1*rng.NormFloat64(),
		}

		p := 0.25
		if math.Abs(row["plate_x"]) < 0.83 && row["plate_z"] > row["sz_bot"] && row["plate_z"] < row["sz_top"] {
			p = 0.75
		}
		if row["strikes"] == 2 {
			p += 0.15
		}
		labels[i] = distuv.Bernoulli{P: p, Src: src}.Rand()

		for _, name := range schema.Numeric {
			v := row[name]
			if rng.Float64() < 0.02 {
				v = math.NaN()
			}
			numeric.Set(i, col[name], v)
		}

		pitch := syntheticPitches[rng.IntN(len(syntheticPitches))]
		stand := syntheticStands[rng.IntN(len(syntheticStands))]
		if rng.Float64() < 0.02 {
			pitch = Missing
		}
		categorical[i] = []string{pitch, stand}
	}

	return &Dataset{
		Frame:  &Frame{Schema: schema, Numeric: numeric, Categorical: categorical, rows: n},
		Labels: labels,
	}
}
