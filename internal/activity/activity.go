package activity

import (
	"fmt"
	"math"
	"strings"
	"time"

	"glowUpAPI/internal/progress"

	"github.com/google/uuid"
)

type Kind string

const (
	KindMeal     Kind = "meal"
	KindWorkout  Kind = "workout"
	KindSkincare Kind = "skincare"
	KindWater    Kind = "water"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindMeal, KindWorkout, KindSkincare, KindWater:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown activity kind %q", progress.ErrInvalidInput, s)
}

type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	Snack     MealType = "snack"
)

type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

type Meal struct {
	MealType   MealType `json:"mealType"`
	Items      []string `json:"items"`
	Calories   int      `json:"calories"`
	PhotoURL   string   `json:"photoUrl,omitempty"`
	AIAnalyzed bool     `json:"aiAnalyzed"`
}

type Workout struct {
	Type            string    `json:"type"`
	DurationMinutes int       `json:"durationMinutes"`
	Intensity       Intensity `json:"intensity"`
	CaloriesBurned  int       `json:"caloriesBurned"`
	PhotoURL        string    `json:"photoUrl,omitempty"`
	AIAnalysis      string    `json:"aiAnalysis,omitempty"`
}

type Skincare struct {
	TimeOfDay  string   `json:"timeOfDay"` // "morning" or "night"
	Products   []string `json:"products"`
	PhotoURL   string   `json:"photoUrl,omitempty"`
	AIAnalysis string   `json:"aiAnalysis,omitempty"`
}

type Water struct {
	Amount int `json:"amount"`
}

// Request is a single activity a user wants to log. Exactly the payload
// matching Kind must be set.
type Request struct {
	Kind     Kind      `json:"kind"`
	Meal     *Meal     `json:"meal,omitempty"`
	Workout  *Workout  `json:"workout,omitempty"`
	Skincare *Skincare `json:"skincare,omitempty"`
	Water    *Water    `json:"water,omitempty"`
}

// Entry is an append-only activity log record.
type Entry struct {
	ID       uuid.UUID    `json:"id" db:"id"`
	UserID   string       `json:"userId" db:"user_id"`
	Kind     Kind         `json:"kind" db:"kind"`
	Day      progress.Day `json:"day" db:"day"`
	LoggedAt time.Time    `json:"loggedAt" db:"logged_at"`
	Meal     *Meal        `json:"meal,omitempty"`
	Workout  *Workout     `json:"workout,omitempty"`
	Skincare *Skincare    `json:"skincare,omitempty"`
	Water    *Water       `json:"water,omitempty"`
}

// Validate checks the payload and normalizes derived fields.
func (r *Request) Validate() error {
	kind, err := ParseKind(string(r.Kind))
	if err != nil {
		return err
	}
	r.Kind = kind

	set := 0
	for _, present := range []bool{r.Meal != nil, r.Workout != nil, r.Skincare != nil, r.Water != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: exactly one %s payload is required", progress.ErrInvalidInput, kind)
	}

	switch kind {
	case KindMeal:
		return r.validateMeal()
	case KindWorkout:
		return r.validateWorkout()
	case KindSkincare:
		return r.validateSkincare()
	case KindWater:
		if r.Water == nil {
			return fmt.Errorf("%w: water payload is required", progress.ErrInvalidInput)
		}
		if r.Water.Amount <= 0 {
			return fmt.Errorf("%w: water amount must be positive", progress.ErrInvalidInput)
		}
	}
	return nil
}

func (r *Request) validateMeal() error {
	if r.Meal == nil {
		return fmt.Errorf("%w: meal payload is required", progress.ErrInvalidInput)
	}
	switch r.Meal.MealType {
	case Breakfast, Lunch, Dinner, Snack:
	default:
		return fmt.Errorf("%w: unknown meal type %q", progress.ErrInvalidInput, r.Meal.MealType)
	}
	r.Meal.Items = cleanList(r.Meal.Items)
	if len(r.Meal.Items) == 0 {
		return fmt.Errorf("%w: a meal needs at least one item", progress.ErrInvalidInput)
	}
	if r.Meal.Calories < 0 {
		return fmt.Errorf("%w: calories cannot be negative", progress.ErrInvalidInput)
	}
	r.Meal.AIAnalyzed = r.Meal.PhotoURL != ""
	return nil
}

func (r *Request) validateWorkout() error {
	if r.Workout == nil {
		return fmt.Errorf("%w: workout payload is required", progress.ErrInvalidInput)
	}
	r.Workout.Type = strings.TrimSpace(r.Workout.Type)
	if r.Workout.Type == "" {
		return fmt.Errorf("%w: workout type is required", progress.ErrInvalidInput)
	}
	if r.Workout.DurationMinutes <= 0 {
		return fmt.Errorf("%w: workout duration must be positive", progress.ErrInvalidInput)
	}
	if r.Workout.Intensity == "" {
		r.Workout.Intensity = IntensityMedium
	}
	burned, err := CaloriesBurned(r.Workout.DurationMinutes, r.Workout.Intensity)
	if err != nil {
		return err
	}
	r.Workout.CaloriesBurned = burned
	return nil
}

func (r *Request) validateSkincare() error {
	if r.Skincare == nil {
		return fmt.Errorf("%w: skincare payload is required", progress.ErrInvalidInput)
	}
	r.Skincare.TimeOfDay = strings.ToLower(strings.TrimSpace(r.Skincare.TimeOfDay))
	if _, err := progress.SkincareTaskFor(r.Skincare.TimeOfDay); err != nil {
		return err
	}
	r.Skincare.Products = cleanList(r.Skincare.Products)
	return nil
}

// NewEntry stamps a validated request as a log entry.
func NewEntry(userID string, day progress.Day, req Request, at time.Time) Entry {
	return Entry{
		ID:       uuid.New(),
		UserID:   userID,
		Kind:     req.Kind,
		Day:      day,
		LoggedAt: at,
		Meal:     req.Meal,
		Workout:  req.Workout,
		Skincare: req.Skincare,
		Water:    req.Water,
	}
}

// Stat is the counter an entry of this kind feeds.
func (k Kind) Stat() progress.StatKind {
	switch k {
	case KindMeal:
		return progress.StatMeals
	case KindWorkout:
		return progress.StatWorkouts
	case KindSkincare:
		return progress.StatSkincare
	}
	return progress.StatWater
}

// Amount is how much the entry adds to its counter.
func (e Entry) Amount() int {
	if e.Kind == KindWater && e.Water != nil {
		return e.Water.Amount
	}
	return 1
}

// Points is the award for logging the request. Skincare is rewarded through
// its routine task instead.
func (r Request) Points() (int, progress.PointSource) {
	switch r.Kind {
	case KindMeal:
		if r.Meal != nil && r.Meal.PhotoURL != "" {
			return progress.PointsMealWithPhoto, progress.SourceMeal
		}
		return progress.PointsMeal, progress.SourceMeal
	case KindWorkout:
		return progress.PointsWorkout, progress.SourceWorkout
	case KindWater:
		return progress.PointsWater, progress.SourceWater
	}
	return 0, ""
}

// CaloriesBurned estimates 5 kcal per minute scaled by intensity.
func CaloriesBurned(durationMinutes int, intensity Intensity) (int, error) {
	var multiplier float64
	switch intensity {
	case IntensityLow:
		multiplier = 0.7
	case IntensityMedium:
		multiplier = 1
	case IntensityHigh:
		multiplier = 1.5
	default:
		return 0, fmt.Errorf("%w: unknown intensity %q", progress.ErrInvalidInput, intensity)
	}
	return int(math.Round(float64(durationMinutes*5) * multiplier)), nil
}

// AIBonus is the award for using photo analysis on an activity.
func AIBonus(kind Kind) (int, error) {
	switch kind {
	case KindMeal:
		return progress.PointsAIMealAnalysis, nil
	case KindWorkout, KindSkincare:
		return progress.PointsAIPhotoAnalysis, nil
	}
	return 0, fmt.Errorf("%w: no photo analysis for %q", progress.ErrInvalidInput, kind)
}

// Tally counts meals, workouts and water volume from a day's entries.
// Skincare is counted from routine completions, not from entries.
func Tally(entries []Entry) map[progress.StatKind]int {
	counts := make(map[progress.StatKind]int)
	for _, e := range entries {
		if e.Kind == KindSkincare {
			continue
		}
		counts[e.Kind.Stat()] += e.Amount()
	}
	return counts
}

func cleanList(items []string) []string {
	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			cleaned = append(cleaned, item)
		}
	}
	return cleaned
}
