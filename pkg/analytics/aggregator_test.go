package analytics

import (
	"math"
	"sync"
	"testing"
	"time"

	"pgregory.net/rapid"
)

func ptr[T any](v T) *T { return &v }

func TestLatencyStats(t *testing.T) {
	s := NewLatencyStats()
	s.Record(10)
	s.Record(30)

	if s.Count != 2 || s.MinMS != 10 || s.MaxMS != 30 || s.AvgMS() != 20 {
		t.Errorf("stats = %+v avg %v, want count 2 min 10 max 30 avg 20", s, s.AvgMS())
	}
}

func TestEmptyLatencyStats(t *testing.T) {
	s := NewLatencyStats()

	if s.Count != 0 {
		t.Errorf("Count = %d", s.Count)
	}
	if !math.IsInf(s.MinMS, 1) {
		t.Errorf("MinMS = %v, want +Inf", s.MinMS)
	}
	if s.MaxMS != 0 || s.AvgMS() != 0 {
		t.Errorf("MaxMS = %v AvgMS = %v, want 0", s.MaxMS, s.AvgMS())
	}
}

func TestLatencyStatsInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		samples := rapid.SliceOfN(rapid.Float64Range(0, 1e6), 1, 100).Draw(t, "samples")

		s := NewLatencyStats()
		for _, ms := range samples {
			s.Record(ms)
		}

		if s.Count != uint64(len(samples)) {
			t.Fatalf("Count = %d, want %d", s.Count, len(samples))
		}
		if s.MinMS > s.AvgMS()+1e-6 || s.AvgMS() > s.MaxMS+1e-6 {
			t.Fatalf("expected min <= avg <= max, got %v %v %v", s.MinMS, s.AvgMS(), s.MaxMS)
		}
	})
}

func TestRecordInteraction(t *testing.T) {
	a := NewAggregator()

	a.RecordInteraction(Interaction{Type: "slash_command", UserID: 42, CommandName: "ping", GuildID: ptr[uint64](100)})
	a.RecordInteraction(Interaction{Type: "slash_command", UserID: 42, CommandName: "ping", GuildID: ptr[uint64](100)})
	a.RecordInteraction(Interaction{Type: "button", UserID: 7})

	snap := a.Snapshot()
	if snap.TotalInteractions != 3 {
		t.Errorf("TotalInteractions = %d, want 3", snap.TotalInteractions)
	}
	if snap.InteractionTypes["slash_command"] != 2 || snap.InteractionTypes["button"] != 1 {
		t.Errorf("InteractionTypes = %v", snap.InteractionTypes)
	}
	if snap.CommandUsage["ping"] != 2 || len(snap.CommandUsage) != 1 {
		t.Errorf("CommandUsage = %v", snap.CommandUsage)
	}
	if snap.UniqueUsers() != 2 || !snap.HasUser(42) || !snap.HasUser(7) {
		t.Errorf("UniqueUserIDs = %v", snap.UniqueUserIDs)
	}
	// The DM interaction adds no guild entry.
	if snap.ActiveGuilds() != 1 || snap.GuildActivity[100] != 2 {
		t.Errorf("GuildActivity = %v", snap.GuildActivity)
	}
}

func TestRecordCompletion(t *testing.T) {
	a := NewAggregator()

	a.RecordCompletion(Completion{CommandName: "ping", Status: StatusSuccess, DurationMS: ptr(10.0)})
	a.RecordCompletion(Completion{CommandName: "ping", Status: StatusSuccess, DurationMS: ptr(30.0)})
	a.RecordCompletion(Completion{CommandName: "ban", Status: StatusUserError, DurationMS: ptr(5.0), ErrorType: "UserFriendlyError"})
	a.RecordCompletion(Completion{CommandName: "ban", Status: StatusInternalError, ErrorType: "errorString"})

	snap := a.Snapshot()

	if snap.CompletionStatus[StatusSuccess] != 2 || snap.CompletionStatus[StatusUserError] != 1 || snap.CompletionStatus[StatusInternalError] != 1 {
		t.Errorf("CompletionStatus = %v", snap.CompletionStatus)
	}
	ping := snap.CommandLatency["ping"]
	if ping.Count != 2 || ping.MinMS != 10 || ping.MaxMS != 30 || ping.AvgMS() != 20 {
		t.Errorf("ping latency = %+v", ping)
	}
	// The internal error carried no duration.
	if ban := snap.CommandLatency["ban"]; ban.Count != 1 {
		t.Errorf("ban latency count = %d, want 1", ban.Count)
	}
	if snap.CommandFailures["ban"][StatusUserError] != 1 || snap.CommandFailures["ban"][StatusInternalError] != 1 {
		t.Errorf("CommandFailures = %v", snap.CommandFailures)
	}
	if _, ok := snap.CommandFailures["ping"]; ok {
		t.Error("successful command should have no failure entry")
	}
	if snap.ErrorTypes["UserFriendlyError"] != 1 || snap.ErrorTypes["errorString"] != 1 {
		t.Errorf("ErrorTypes = %v", snap.ErrorTypes)
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	a := NewAggregator()
	a.RecordInteraction(Interaction{Type: "slash_command", UserID: 1, CommandName: "ping", GuildID: ptr[uint64](5)})
	a.RecordCompletion(Completion{CommandName: "ping", Status: StatusUserError, DurationMS: ptr(12.0), ErrorType: "X"})

	snap := a.Snapshot()
	snap.TotalInteractions = 99
	snap.CommandUsage["ping"] = 99
	snap.UniqueUserIDs[2] = struct{}{}
	snap.GuildActivity[6] = 1
	snap.CommandFailures["ping"][StatusUserError] = 99
	snap.CommandLatency["ping"] = LatencyStats{}
	snap.ErrorTypes["Y"] = 1

	fresh := a.Snapshot()
	if fresh.TotalInteractions != 1 || fresh.CommandUsage["ping"] != 1 {
		t.Errorf("aggregator counters changed: %+v", fresh)
	}
	if fresh.UniqueUsers() != 1 || fresh.ActiveGuilds() != 1 {
		t.Errorf("aggregator sets changed: users %d guilds %d", fresh.UniqueUsers(), fresh.ActiveGuilds())
	}
	if fresh.CommandFailures["ping"][StatusUserError] != 1 {
		t.Errorf("nested failure map was shared: %v", fresh.CommandFailures)
	}
	if fresh.CommandLatency["ping"].Count != 1 {
		t.Errorf("latency was shared: %+v", fresh.CommandLatency["ping"])
	}
	if len(fresh.ErrorTypes) != 1 {
		t.Errorf("ErrorTypes = %v", fresh.ErrorTypes)
	}
}

func TestConcurrentRecording(t *testing.T) {
	a := NewAggregator()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				a.RecordInteraction(Interaction{Type: "slash_command", UserID: uint64(w), CommandName: "ping"})
				a.RecordCompletion(Completion{CommandName: "ping", Status: StatusSuccess, DurationMS: ptr(1.0)})
				_ = a.Snapshot()
			}
		}(w)
	}
	wg.Wait()

	snap := a.Snapshot()
	if snap.TotalInteractions != 800 || snap.CommandLatency["ping"].Count != 800 {
		t.Errorf("lost updates: interactions %d latency %d", snap.TotalInteractions, snap.CommandLatency["ping"].Count)
	}
}

func TestSnapshotHelpers(t *testing.T) {
	boot := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := NewAggregatorAt(boot)

	for name, n := range map[string]int{"ping": 3, "ban": 5, "kick": 3, "help": 1} {
		for i := 0; i < n; i++ {
			a.RecordInteraction(Interaction{Type: "slash_command", UserID: 1, CommandName: name})
		}
	}
	for i := 0; i < 3; i++ {
		a.RecordCompletion(Completion{CommandName: "ping", Status: StatusSuccess})
	}
	a.RecordCompletion(Completion{CommandName: "ban", Status: StatusInternalError})

	snap := a.Snapshot()

	top := snap.TopCommands(3)
	want := []CommandCount{{"ban", 5}, {"kick", 3}, {"ping", 3}}
	if len(top) != len(want) {
		t.Fatalf("TopCommands = %v", top)
	}
	for i := range want {
		if top[i] != want[i] {
			t.Errorf("TopCommands[%d] = %v, want %v", i, top[i], want[i])
		}
	}
	if len(snap.TopCommands(0)) != 4 {
		t.Errorf("TopCommands(0) should return all commands")
	}

	if snap.TotalCompletions() != 4 || snap.TotalFailures() != 1 {
		t.Errorf("completions %d failures %d", snap.TotalCompletions(), snap.TotalFailures())
	}
	if snap.SuccessRate() != 75 {
		t.Errorf("SuccessRate = %v, want 75", snap.SuccessRate())
	}
	if got := snap.Uptime(boot.Add(90 * time.Minute)); got != 90*time.Minute {
		t.Errorf("Uptime = %v", got)
	}
	if keys := SortedKeys(snap.CommandUsage); keys[0] != "ban" || keys[3] != "help" {
		t.Errorf("SortedKeys = %v", keys)
	}
}

func TestSuccessRateWithoutCompletions(t *testing.T) {
	if rate := NewAggregator().Snapshot().SuccessRate(); rate != 0 {
		t.Errorf("SuccessRate = %v, want 0", rate)
	}
}
