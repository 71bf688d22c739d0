package conflicts

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/events"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/model"
	"pgregory.net/rapid"
)

func window(from, to time.Time) []model.Range { return []model.Range{{Start: from, End: to}} }

func TestProbe_EmptyWindow(t *testing.T) {
	p := Probe{Windows: window(at(11, 0), at(19, 30)), Duration: 30 * time.Minute}
	if !p.HasFreeGap() {
		t.Fatalf("open window without events must have a gap")
	}
	p.Windows = window(at(11, 0), at(11, 20))
	if p.HasFreeGap() {
		t.Fatalf("window shorter than the duration has no gap")
	}
}

func TestProbe_InteriorGapNeedsDoubleBuffer(t *testing.T) {
	p := Probe{
		Windows:  window(at(8, 0), at(20, 0)),
		Duration: 30 * time.Minute,
		Buffer:   10 * time.Minute,
		Busy:     busy([2]time.Time{at(8, 0), at(12, 0)}, [2]time.Time{at(12, 50), at(20, 0)}),
	}
	if !p.HasFreeGap() {
		t.Fatalf("a 50 minute gap fits 30+10+10")
	}

	p.Busy = busy([2]time.Time{at(8, 0), at(12, 0)}, [2]time.Time{at(12, 49), at(20, 0)})
	if p.HasFreeGap() {
		t.Fatalf("a 49 minute gap does not fit 30+10+10")
	}
}

func TestProbe_BoundaryGapNeedsSingleBuffer(t *testing.T) {
	p := Probe{
		Windows:  window(at(9, 0), at(17, 0)),
		Duration: 30 * time.Minute,
		Buffer:   10 * time.Minute,
		Busy:     busy([2]time.Time{at(9, 40), at(17, 0)}),
	}
	if !p.HasFreeGap() {
		t.Fatalf("40 minutes at the window start fit 30+10")
	}
	p.Busy = busy([2]time.Time{at(9, 39), at(17, 0)})
	if p.HasFreeGap() {
		t.Fatalf("39 minutes at the window start do not fit 30+10")
	}
}

func TestProbe_BreaksAreUnbuffered(t *testing.T) {
	p := Probe{
		Windows:  window(at(9, 0), at(10, 30)),
		Breaks:   []model.Range{{Start: at(9, 30), End: at(10, 0)}},
		Duration: 30 * time.Minute,
		Buffer:   15 * time.Minute,
	}
	if !p.HasFreeGap() {
		t.Fatalf("09:00-09:30 fits before the break")
	}
}

func TestProbe_CutoffClampsWindow(t *testing.T) {
	p := Probe{Windows: window(at(9, 0), at(17, 0)), Duration: 30 * time.Minute, Cutoff: at(16, 45)}
	if p.HasFreeGap() {
		t.Fatalf("only 15 minutes remain after the cutoff")
	}
	p.Cutoff = at(16, 30)
	if !p.HasFreeGap() {
		t.Fatalf("30 minutes remain after the cutoff")
	}
}

func TestProbe_OverlappingEvents(t *testing.T) {
	p := Probe{
		Windows:  window(at(9, 0), at(12, 0)),
		Duration: time.Hour,
		Busy: busy(
			[2]time.Time{at(9, 0), at(11, 0)},
			[2]time.Time{at(9, 30), at(10, 0)},
			[2]time.Time{at(10, 30), at(11, 30)},
		),
	}
	if p.HasFreeGap() {
		t.Fatalf("only 30 minutes remain after 11:30")
	}
}

// The probe must agree with brute force enumeration at minute granularity
// whenever enumeration finds a slot.
func TestProbe_NeverMissesAnEnumeratedSlot(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		minute := func(label string, lo, hi int) time.Time {
			return base.Add(time.Duration(rapid.IntRange(lo, hi).Draw(t, label)) * time.Minute)
		}
		ws := minute("window_start", 0, 600)
		we := ws.Add(time.Duration(rapid.IntRange(0, 600).Draw(t, "window_len")) * time.Minute)
		duration := time.Duration(rapid.IntRange(5, 120).Draw(t, "duration")) * time.Minute
		buffer := time.Duration(rapid.IntRange(0, 30).Draw(t, "buffer")) * time.Minute
		cutoff := minute("cutoff", 0, 900)

		n := rapid.IntRange(0, 8).Draw(t, "events")
		var ivs []events.Interval
		for i := 0; i < n; i++ {
			s := minute("event_start", -120, 1300)
			ivs = append(ivs, events.Interval{Start: s, End: s.Add(time.Duration(rapid.IntRange(0, 240).Draw(t, "event_len")) * time.Minute)})
		}

		found := false
		for s := ws; !s.Add(duration).After(we); s = s.Add(time.Minute) {
			if !s.Before(cutoff) && !ConflictsAny(s, s.Add(duration), ivs, buffer) {
				found = true
				break
			}
		}
		p := Probe{Windows: window(ws, we), Busy: ivs, Duration: duration, Buffer: buffer, Cutoff: cutoff}
		if found && !p.HasFreeGap() {
			t.Fatalf("enumeration found a slot but the probe did not")
		}
		if !found && p.HasFreeGap() {
			t.Fatalf("minute-granular enumeration is exact, probe must agree")
		}
	})
}

func TestPreFilter_DropsOnlyIrrelevantEvents(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		offsetMin := rapid.IntRange(-12*60, 14*60).Draw(t, "offset_minutes")
		viewer := time.FixedZone("viewer", offsetMin*60)
		date := civil.Date{Year: 2025, Month: time.June, Day: 16}
		buffer := time.Duration(rapid.IntRange(0, 120).Draw(t, "buffer")) * time.Minute

		start := base.Add(time.Duration(rapid.IntRange(-7*24*60, 7*24*60).Draw(t, "start")) * time.Minute)
		iv := events.Interval{Start: start, End: start.Add(time.Duration(rapid.IntRange(0, 3*24*60).Draw(t, "len")) * time.Minute)}

		kept := PreFilter([]events.Interval{iv}, date, viewer, buffer)
		if len(kept) == 1 {
			return
		}
		eval := model.Range{
			Start: time.Date(2025, 6, 15, 0, 0, 0, 0, viewer),
			End:   time.Date(2025, 6, 18, 0, 0, 0, 0, viewer),
		}
		padded := model.Range{Start: iv.Start.Add(-buffer), End: iv.End.Add(buffer)}
		if padded.Overlaps(eval) {
			t.Fatalf("dropped event %v overlaps the evaluation range", padded)
		}
	})
}
