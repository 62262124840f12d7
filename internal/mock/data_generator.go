package mock

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/imedaveo16/imed-dz/internal/adapters/positioning"
	"github.com/imedaveo16/imed-dz/internal/core/domain"
	"github.com/imedaveo16/imed-dz/internal/geo"
)

// Streets used in generated descriptions and addresses
var algiersStreets = []string{
	"Rue Didouche Mourad", "Boulevard Zighout Youcef", "Rue Larbi Ben M'hidi",
	"Avenue Pasteur", "Rue Hassiba Ben Bouali", "Boulevard Colonel Amirouche",
	"Rue Abane Ramdane", "Boulevard Mohamed V", "Rue Ahmed Zabana",
	"Avenue Souidani Boudjemaa", "Rue Mohamed Belouizdad", "Chemin Sfindja",
	"Boulevard des Martyrs", "Rue Asselah Hocine", "Avenue de l'ALN",
	"Rue Krim Belkacem", "Boulevard Che Guevara", "Rue Ali Boumendjel",
}

// Neighborhood anchors the generated sessions report from. Weighted
// towards the city centre; the last entries sit outside a 30 km service
// area so some reports arrive flagged.
var demoSpots = []demoSpot{
	{"Alger-Centre", 36.7611, 3.0522, 0.22},
	{"Bab El Oued", 36.7925, 3.0514, 0.14},
	{"Hydra", 36.7433, 3.0372, 0.12},
	{"Kouba", 36.7280, 3.0870, 0.12},
	{"El Harrach", 36.7225, 3.1353, 0.12},
	{"Hussein Dey", 36.7410, 3.0960, 0.10},
	{"Bir Mourad Rais", 36.7370, 3.0510, 0.08},
	{"Zeralda", 36.7119, 2.8428, 0.05},
	{"Blida", 36.4722, 2.8333, 0.03},
	{"Tipaza", 36.5892, 2.4483, 0.02},
}

type demoSpot struct {
	Name   string
	Lat    float64
	Lng    float64
	Weight float32
}

// Description templates per category; %s receives a street name.
var categoryTemplates = map[domain.Category][]string{
	domain.CategoryRoads: {
		"Nid de poule dangereux devant le %s",
		"Chaussée affaissée au niveau de %s",
		"Trottoir défoncé sur %s, difficile pour les poussettes",
		"Ralentisseur non signalé sur %s",
	},
	domain.CategoryLighting: {
		"Lampadaire éteint depuis plusieurs jours sur %s",
		"Éclairage public qui clignote toute la nuit sur %s",
		"Trois lampadaires hors service d'affilée sur %s",
	},
	domain.CategoryWater: {
		"Fuite d'eau importante sur %s",
		"Canalisation qui déborde au coin de %s",
		"Coupure d'eau récurrente dans le quartier de %s",
		"Bouche d'égout qui refoule sur %s après la pluie",
	},
	domain.CategoryWaste: {
		"Dépôt sauvage d'ordures près de %s",
		"Bac à ordures renversé et non ramassé sur %s",
		"Gravats abandonnés sur le trottoir de %s",
	},
	domain.CategorySafety: {
		"Plaque d'égout manquante sur %s",
		"Câble électrique qui pend au-dessus de %s",
		"Mur de clôture fissuré menaçant de tomber sur %s",
	},
	domain.CategoryOther: {
		"Banc public cassé à proximité de %s",
		"Arbre mort à élaguer sur %s",
		"Panneau de signalisation arraché sur %s",
	},
}

// Category mix for generated reports (weighted towards roads and water,
// matching what a municipal intake actually receives).
var demoCategories = []string{
	string(domain.CategoryRoads),
	string(domain.CategoryWater),
	string(domain.CategoryLighting),
	string(domain.CategoryWaste),
	string(domain.CategorySafety),
	string(domain.CategoryOther),
}

var demoCategoryWeights = []float32{0.30, 0.22, 0.18, 0.15, 0.08, 0.07}

// Positioning scenario mix used by the rotating "mixed" plan.
var demoScenarios = []string{
	positioning.ScenarioInstantFix,
	positioning.ScenarioRetryThenFix,
	positioning.ScenarioDenied,
	positioning.ScenarioDeadDevice,
	positioning.ScenarioNoGeolocation,
}

var demoScenarioWeights = []float32{0.50, 0.15, 0.12, 0.11, 0.12}

// tapJitterMeters spreads manual taps around the chosen spot.
const tapJitterMeters = 400.0

// DataGenerator produces plausible citizen input for demo sessions.
type DataGenerator struct {
	rand *rand.Rand
}

// NewDataGenerator creates a generator with a time-seeded source.
func NewDataGenerator() *DataGenerator {
	return &DataGenerator{
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Spot picks a weighted neighborhood anchor.
func (g *DataGenerator) Spot() demoSpot {
	r := g.rand.Float32()
	cumulative := float32(0)

	for _, spot := range demoSpots {
		cumulative += spot.Weight
		if r <= cumulative {
			return spot
		}
	}

	return demoSpots[0]
}

// Coordinate returns the spot's anchor offset by a random bearing and
// distance, the way a tapped marker lands near but not on a landmark.
func (g *DataGenerator) Coordinate(spot demoSpot) domain.Coordinate {
	distance := g.rand.Float64() * tapJitterMeters
	bearing := g.rand.Float64() * 2 * math.Pi

	dLat := distance * math.Cos(bearing) * geo.DegreesPerMeterLat
	dLng := distance * math.Sin(bearing) * geo.DegreesPerMeterLat / math.Cos(spot.Lat*math.Pi/180)

	return domain.Coordinate{
		Lat: spot.Lat + dLat,
		Lng: spot.Lng + dLng,
	}
}

// Draft builds a report draft bound to the given session. The location is
// left to the session's selection.
func (g *DataGenerator) Draft(sessionID string) domain.ReportDraft {
	category := domain.Category(g.weightedChoice(demoCategories, demoCategoryWeights))
	templates := categoryTemplates[category]
	street := algiersStreets[g.rand.Intn(len(algiersStreets))]

	return domain.ReportDraft{
		SessionID:   sessionID,
		Category:    category,
		Description: fmt.Sprintf(templates[g.rand.Intn(len(templates))], street),
	}
}

// Scenario picks a weighted positioning scenario for one citizen.
func (g *DataGenerator) Scenario() string {
	return g.weightedChoice(demoScenarios, demoScenarioWeights)
}

// Chance returns true with probability p.
func (g *DataGenerator) Chance(p float32) bool {
	return g.rand.Float32() < p
}

// Between returns a random duration in [min, max).
func (g *DataGenerator) Between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(g.rand.Int63n(int64(max-min)))
}

func (g *DataGenerator) weightedChoice(choices []string, weights []float32) string {
	total := float32(0)
	for _, w := range weights {
		total += w
	}

	r := g.rand.Float32() * total
	cumulative := float32(0)

	for i, w := range weights {
		cumulative += w
		if r <= cumulative {
			return choices[i]
		}
	}

	return choices[0]
}
