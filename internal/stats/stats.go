// Package stats builds the contest history and problem-solving summaries
// shown on a student's profile.
//
// The numbers are synthetic. They are derived from the student id (and,
// for the submission calendar, the calendar date) so repeated requests for
// the same student return the same data and narrower windows are always a
// subset of wider ones.
package stats

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/aanand-mishra/students-dashboard/internal/types"
)

// ErrInvalidWindow is returned for a days value outside the allowed set.
var ErrInvalidWindow = errors.New("invalid day window")

var (
	// ContestWindows are the accepted ?days= values for contest history.
	ContestWindows = []int{30, 90, 365}

	// ProblemWindows are the accepted ?days= values for problem stats.
	ProblemWindows = []int{7, 30, 90}
)

const (
	day           = 24 * time.Hour
	defaultRating = 1200
	minRating     = 800
	maxRating     = 3500
	historyDays   = 365
)

// Contest is one rated contest a student took part in.
type Contest struct {
	ContestID     int    `json:"contestId"`
	ContestName   string `json:"contestName"`
	ContestTime   int64  `json:"contestTime"`
	Rank          int    `json:"rank"`
	SolvedCount   int    `json:"solvedCount"`
	TotalProblems int    `json:"totalProblems"`
	RatingChange  int    `json:"ratingChange"`
	NewRating     int    `json:"newRating"`
}

// Problem identifies a single problem.
type Problem struct {
	ContestID int    `json:"contestId"`
	Index     string `json:"index"`
	Name      string `json:"name"`
	Rating    int    `json:"rating"`
}

type RatingBucket struct {
	RatingRange string `json:"ratingRange"`
	Count       int    `json:"count"`
}

type CalendarDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Problems summarises solving activity over a window.
type Problems struct {
	TotalSolved           int            `json:"totalSolved"`
	AverageRating         int            `json:"averageRating"`
	AverageProblemsPerDay float64        `json:"averageProblemsPerDay"`
	HardestProblem        *Problem       `json:"hardestProblem"`
	RatingDistribution    []RatingBucket `json:"ratingDistribution"`
	SubmissionCalendar    []CalendarDay  `json:"submissionCalendar"`
}

var buckets = []struct {
	label string
	lo    int
}{
	{"800-999", 800},
	{"1000-1199", 1000},
	{"1200-1399", 1200},
	{"1400-1599", 1400},
	{"1600-1799", 1600},
	{"1800-1999", 1800},
	{"2000+", 2000},
}

var problemNames = []string{
	"Two Buttons", "Array Stabilization", "Good Subsegments", "Tree Queries",
	"Palindrome Partition", "Minimum Path Cover", "Bracket Sequence",
	"Segment Painting", "Counting Rectangles", "XOR Guessing",
}

// ValidWindow reports whether days is one of allowed.
func ValidWindow(days int, allowed []int) bool {
	for _, d := range allowed {
		if d == days {
			return true
		}
	}
	return false
}

func seed(parts ...string) int64 {
	h := fnv.New64a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return int64(h.Sum64())
}

func baseRating(s types.Student) int {
	if s.CurrentRating > 0 {
		return s.CurrentRating
	}
	return defaultRating
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ContestHistory returns the contests within the last days days, oldest
// first. The final newRating over the full year equals the student's
// current rating when one is known.
func ContestHistory(s types.Student, days int, now time.Time) ([]Contest, error) {
	if !ValidWindow(days, ContestWindows) {
		return nil, fmt.Errorf("%w: %d (allowed %v)", ErrInvalidWindow, days, ContestWindows)
	}

	rng := rand.New(rand.NewSource(seed("contests", s.ID)))
	today := startOfDay(now)

	// walk backwards from today in gaps of 5..14 days
	var offsets []int
	for off := 1 + rng.Intn(7); off <= historyDays; off += 5 + rng.Intn(10) {
		offsets = append(offsets, off)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(offsets)))

	changes := make([]int, len(offsets))
	sum := 0
	for i := range changes {
		changes[i] = rng.Intn(151) - 60
		sum += changes[i]
	}

	rating := baseRating(s) - sum
	contestID := 1700 + rng.Intn(100)
	cutoff := now.Add(-time.Duration(days) * day)

	var out []Contest
	for i, off := range offsets {
		contestID += 1 + rng.Intn(6)
		total := 5 + rng.Intn(4)
		solved := rng.Intn(total + 1)
		rank := 1 + rng.Intn(8000)
		division := 1 + rng.Intn(3)
		rating += changes[i]

		// 14:35 UTC is the usual round start
		at := today.Add(-time.Duration(off)*day + 14*time.Hour + 35*time.Minute)
		if at.Before(cutoff) || at.After(now) {
			continue
		}

		out = append(out, Contest{
			ContestID:     contestID,
			ContestName:   fmt.Sprintf("Codeforces Round #%d (Div. %d)", contestID, division),
			ContestTime:   at.Unix(),
			Rank:          rank,
			SolvedCount:   solved,
			TotalProblems: total,
			RatingChange:  changes[i],
			NewRating:     rating,
		})
	}
	if out == nil {
		out = []Contest{}
	}
	return out, nil
}

// ProblemStats summarises the last days days, today included. The
// submission calendar has exactly days entries, today first.
func ProblemStats(s types.Student, days int, now time.Time) (Problems, error) {
	if !ValidWindow(days, ProblemWindows) {
		return Problems{}, fmt.Errorf("%w: %d (allowed %v)", ErrInvalidWindow, days, ProblemWindows)
	}

	base := baseRating(s)
	today := startOfDay(now)

	p := Problems{
		RatingDistribution: make([]RatingBucket, len(buckets)),
		SubmissionCalendar: make([]CalendarDay, 0, days),
	}
	for i, b := range buckets {
		p.RatingDistribution[i].RatingRange = b.label
	}

	ratingSum := 0
	for i := 0; i < days; i++ {
		date := today.Add(-time.Duration(i) * day).Format(time.DateOnly)
		rng := rand.New(rand.NewSource(seed("calendar", s.ID, date)))

		count := rng.Intn(10)
		p.SubmissionCalendar = append(p.SubmissionCalendar, CalendarDay{Date: date, Count: count})

		for j := 0; j < count; j++ {
			r := problemRating(rng, base)
			ratingSum += r
			p.TotalSolved++
			p.RatingDistribution[bucketFor(r)].Count++

			if p.HardestProblem == nil || r > p.HardestProblem.Rating {
				p.HardestProblem = &Problem{
					ContestID: 1000 + rng.Intn(900),
					Index:     indexFor(r),
					Name:      problemNames[rng.Intn(len(problemNames))],
					Rating:    r,
				}
			}
		}
	}

	if p.TotalSolved > 0 {
		p.AverageRating = ratingSum / p.TotalSolved
	}
	p.AverageProblemsPerDay = math.Round(float64(p.TotalSolved)/float64(days)*100) / 100
	return p, nil
}

// problemRating draws a multiple of 100 near base, clamped to the rated range.
func problemRating(rng *rand.Rand, base int) int {
	r := (base/100)*100 + (rng.Intn(9)-5)*100
	if r < minRating {
		r = minRating
	}
	if r > maxRating {
		r = maxRating
	}
	return r
}

func bucketFor(rating int) int {
	for i := len(buckets) - 1; i >= 0; i-- {
		if rating >= buckets[i].lo {
			return i
		}
	}
	return 0
}

func indexFor(rating int) string {
	i := (rating - minRating) / 400
	if i > 5 {
		i = 5
	}
	return string(rune('A' + i))
}
