// Package chrono implements the simulation clock: a tick counter broken down into
// days and years with carry-propagating arithmetic.
//
// A Time is an immutable value. Every operation returns a new Time and never
// writes into big.Int storage that another Time may share.
package chrono

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

var (
	ErrZeroDay  = errors.New("chrono: one_day_of_time must be > 0")
	ErrZeroYear = errors.New("chrono: one_year_of_day must be > 0")
)

type Time struct {
	all          *big.Int
	oneDayOfTime *big.Int
	day          *big.Int
	// remainderTime is the unit-ticks that do not fill a whole day.
	remainderTime *big.Int
	oneYearOfDay  *big.Int
	year          *big.Int
	// remainderDay is the day-of-year.
	remainderDay *big.Int
}

// Validate reports whether the given ratios can be used to build a Time.
func Validate(oneDayOfTime, oneYearOfDay *big.Int) error {
	if oneDayOfTime == nil || oneDayOfTime.Sign() <= 0 {
		return ErrZeroDay
	}
	if oneYearOfDay == nil || oneYearOfDay.Sign() <= 0 {
		return ErrZeroYear
	}
	return nil
}

// New derives the day/year breakdown of all from the two unit ratios.
// It panics when either ratio is zero or all is negative.
func New(all, oneDayOfTime, oneYearOfDay *big.Int) Time {
	if err := Validate(oneDayOfTime, oneYearOfDay); err != nil {
		panic(err)
	}
	if all == nil || all.Sign() < 0 {
		panic(fmt.Sprintf("chrono: negative tick count %v", all))
	}
	day, remainderTime := new(big.Int).QuoRem(all, oneDayOfTime, new(big.Int))
	year, remainderDay := new(big.Int).QuoRem(day, oneYearOfDay, new(big.Int))
	return Time{
		all:           new(big.Int).Set(all),
		oneDayOfTime:  new(big.Int).Set(oneDayOfTime),
		day:           day,
		remainderTime: remainderTime,
		oneYearOfDay:  new(big.Int).Set(oneYearOfDay),
		year:          year,
		remainderDay:  remainderDay,
	}
}

func FromUint64(all, oneDayOfTime, oneYearOfDay uint64) Time {
	return New(
		new(big.Int).SetUint64(all),
		new(big.Int).SetUint64(oneDayOfTime),
		new(big.Int).SetUint64(oneYearOfDay),
	)
}

// Zero returns tick 0 of a calendar with the given ratios.
func Zero(oneDayOfTime, oneYearOfDay uint64) Time {
	return FromUint64(0, oneDayOfTime, oneYearOfDay)
}

// Plus advances t by delta unit-ticks. The carry goes remainder_time -> day ->
// year without recomputing from all, and the result equals New(all+delta).
func (t Time) Plus(delta *big.Int) Time {
	if delta == nil || delta.Sign() < 0 {
		panic(fmt.Sprintf("chrono: negative delta %v", delta))
	}
	all := new(big.Int).Add(t.all, delta)
	newRemainderTime := new(big.Int).Add(t.remainderTime, delta)
	plusDay, remainderTime := new(big.Int).QuoRem(newRemainderTime, t.oneDayOfTime, new(big.Int))
	day := new(big.Int).Add(t.day, plusDay)
	newRemainderDay := new(big.Int).Add(t.remainderDay, plusDay)
	plusYear, remainderDay := new(big.Int).QuoRem(newRemainderDay, t.oneYearOfDay, new(big.Int))
	year := new(big.Int).Add(t.year, plusYear)
	return Time{
		all:           all,
		oneDayOfTime:  t.oneDayOfTime,
		day:           day,
		remainderTime: remainderTime,
		oneYearOfDay:  t.oneYearOfDay,
		year:          year,
		remainderDay:  remainderDay,
	}
}

var one = big.NewInt(1)

func (t Time) PlusOne() Time { return t.Plus(one) }

// ChangeRule switches the calendar ratios. Carries are re-derived from the
// current remainders against the new ratios; all is left untouched. When the
// ratios shrink the breakdown no longer matches New(all, ...). Use Rebase for
// a breakdown recomputed from all.
func (t Time) ChangeRule(oneDayOfTime, oneYearOfDay *big.Int) Time {
	if err := Validate(oneDayOfTime, oneYearOfDay); err != nil {
		panic(err)
	}
	plusDay, remainderTime := new(big.Int).QuoRem(t.remainderTime, oneDayOfTime, new(big.Int))
	day := new(big.Int).Add(t.day, plusDay)
	newRemainderDay := new(big.Int).Add(t.remainderDay, plusDay)
	plusYear, remainderDay := new(big.Int).QuoRem(newRemainderDay, oneYearOfDay, new(big.Int))
	year := new(big.Int).Add(t.year, plusYear)
	return Time{
		all:           t.all,
		oneDayOfTime:  new(big.Int).Set(oneDayOfTime),
		day:           day,
		remainderTime: remainderTime,
		oneYearOfDay:  new(big.Int).Set(oneYearOfDay),
		year:          year,
		remainderDay:  remainderDay,
	}
}

// Rebase switches the calendar ratios and recomputes the breakdown from all.
func (t Time) Rebase(oneDayOfTime, oneYearOfDay *big.Int) Time {
	return New(t.all, oneDayOfTime, oneYearOfDay)
}

// Add sums two durations using t's ratios.
func (t Time) Add(o Time) Time {
	return New(new(big.Int).Add(t.all, o.all), t.oneDayOfTime, t.oneYearOfDay)
}

// Sub subtracts o from t using t's ratios. ok is false when o is longer than t.
func (t Time) Sub(o Time) (Time, bool) {
	if t.all.Cmp(o.all) < 0 {
		return Time{}, false
	}
	return New(new(big.Int).Sub(t.all, o.all), t.oneDayOfTime, t.oneYearOfDay), true
}

// Cmp compares the elapsed tick counts of t and o.
func (t Time) Cmp(o Time) int { return t.all.Cmp(o.all) }

func (t Time) Equal(o Time) bool {
	return eq(t.all, o.all) &&
		eq(t.oneDayOfTime, o.oneDayOfTime) &&
		eq(t.day, o.day) &&
		eq(t.remainderTime, o.remainderTime) &&
		eq(t.oneYearOfDay, o.oneYearOfDay) &&
		eq(t.year, o.year) &&
		eq(t.remainderDay, o.remainderDay)
}

func (t Time) IsZero() bool { return t.all == nil }

func (t Time) All() *big.Int           { return cp(t.all) }
func (t Time) OneDayOfTime() *big.Int  { return cp(t.oneDayOfTime) }
func (t Time) Day() *big.Int           { return cp(t.day) }
func (t Time) RemainderTime() *big.Int { return cp(t.remainderTime) }
func (t Time) OneYearOfDay() *big.Int  { return cp(t.oneYearOfDay) }
func (t Time) Year() *big.Int          { return cp(t.year) }
func (t Time) RemainderDay() *big.Int  { return cp(t.remainderDay) }

func (t Time) String() string {
	if t.IsZero() {
		return "<unset>"
	}
	return fmt.Sprintf("y%s d%s t%s (all=%s)", t.year, t.remainderDay, t.remainderTime, t.all)
}

type timeJSON struct {
	All           *big.Int `json:"all"`
	OneDayOfTime  *big.Int `json:"one_day_of_time"`
	Day           *big.Int `json:"day"`
	RemainderTime *big.Int `json:"remainder_time"`
	OneYearOfDay  *big.Int `json:"one_year_of_day"`
	Year          *big.Int `json:"year"`
	RemainderDay  *big.Int `json:"remainder_day"`
}

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(timeJSON{
		All:           t.all,
		OneDayOfTime:  t.oneDayOfTime,
		Day:           t.day,
		RemainderTime: t.remainderTime,
		OneYearOfDay:  t.oneYearOfDay,
		Year:          t.year,
		RemainderDay:  t.remainderDay,
	})
}

// UnmarshalJSON rebuilds the breakdown from all and the two ratios; the
// derived fields in the input are ignored.
func (t *Time) UnmarshalJSON(b []byte) error {
	var v timeJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if err := Validate(v.OneDayOfTime, v.OneYearOfDay); err != nil {
		return err
	}
	if v.All == nil || v.All.Sign() < 0 {
		return fmt.Errorf("chrono: bad all %v", v.All)
	}
	*t = New(v.All, v.OneDayOfTime, v.OneYearOfDay)
	return nil
}

func cp(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}

func eq(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}
