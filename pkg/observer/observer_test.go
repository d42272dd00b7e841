package observer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/capy-discord/capy/pkg/analytics"
	"github.com/capy-discord/capy/pkg/discord"
	"github.com/capy-discord/capy/pkg/telemetry"
)

func testConfig() *telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.Pipeline.FlushInterval = 10 * time.Millisecond
	return cfg
}

func pingInteraction(id, user uint64) *discord.Interaction {
	guild := uint64(100)
	return &discord.Interaction{
		ID:        id,
		Type:      discord.InteractionApplicationCommand,
		User:      discord.User{ID: user, Username: "capy"},
		GuildID:   &guild,
		Guild:     &discord.Guild{ID: guild, Name: "Capy Club"},
		ChannelID: 1,
		CreatedAt: time.Now(),
		Command:   &discord.Command{Name: "ping"},
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := telemetry.DefaultConfig()
	cfg.Pipeline.QueueCapacity = 0

	if _, err := New(cfg, nil); err == nil {
		t.Fatal("expected error for invalid config")
	}
}

func TestEndToEnd(t *testing.T) {
	obs, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	obs.Start(context.Background())
	obs.Start(context.Background())

	i := pingInteraction(1, 42)
	obs.NotifyInteraction(i)
	obs.NotifyCompletion(i, i.Command)

	waitFor(t, func() bool { return obs.Metrics().TotalCompletions() == 1 })

	snap := obs.Metrics()
	if snap.TotalInteractions != 1 || snap.CommandUsage["ping"] != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if !snap.HasUser(42) || snap.GuildActivity[100] != 1 {
		t.Errorf("users %v guilds %v", snap.UniqueUserIDs, snap.GuildActivity)
	}
	if snap.CompletionStatus[analytics.StatusSuccess] != 1 || snap.CommandLatency["ping"].Count != 1 {
		t.Errorf("completions %v latency %+v", snap.CompletionStatus, snap.CommandLatency["ping"])
	}
	if obs.PendingInteractions() != 0 {
		t.Errorf("PendingInteractions = %d", obs.PendingInteractions())
	}

	if err := obs.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestFailuresAreClassified(t *testing.T) {
	obs, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	user := pingInteraction(1, 1)
	internal := pingInteraction(2, 2)
	obs.NotifyInteraction(user)
	obs.NotifyInteraction(internal)
	obs.RecordFailure(user, discord.NewCommandInvokeError("ping", discord.NewUserFriendlyError("bad", "Bad input")))
	obs.RecordFailure(internal, errors.New("boom"))

	if n := obs.Flush(context.Background()); n != 4 {
		t.Fatalf("Flush = %d, want 4", n)
	}

	snap := obs.Metrics()
	if snap.CompletionStatus[analytics.StatusUserError] != 1 || snap.CompletionStatus[analytics.StatusInternalError] != 1 {
		t.Errorf("CompletionStatus = %v", snap.CompletionStatus)
	}
	if snap.CommandFailures["ping"][analytics.StatusUserError] != 1 || snap.CommandFailures["ping"][analytics.StatusInternalError] != 1 {
		t.Errorf("CommandFailures = %v", snap.CommandFailures)
	}
	if snap.ErrorTypes["UserFriendlyError"] != 1 || snap.ErrorTypes["errorString"] != 1 {
		t.Errorf("ErrorTypes = %v", snap.ErrorTypes)
	}
}

func TestShutdownDrainsQueue(t *testing.T) {
	var logs bytes.Buffer
	tel := telemetry.NewNopTelemetry()
	tel.Logger = telemetry.NewLoggerWithWriter(telemetry.LoggingConfig{Level: "debug", Format: "json"}, &logs)

	cfg := telemetry.DefaultConfig()
	cfg.Pipeline.FlushInterval = time.Hour

	obs, err := New(cfg, tel)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	obs.Start(context.Background())

	for id := uint64(1); id <= 3; id++ {
		obs.NotifyInteraction(pingInteraction(id, id))
	}
	if obs.QueueLen() != 3 {
		t.Fatalf("QueueLen = %d, want 3", obs.QueueLen())
	}

	if err := obs.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	if got := obs.Metrics().TotalInteractions; got != 3 {
		t.Errorf("TotalInteractions = %d, want 3", got)
	}
	if obs.QueueLen() != 0 {
		t.Errorf("QueueLen = %d after shutdown", obs.QueueLen())
	}
	if got := strings.Count(logs.String(), "Drained 3 telemetry events during shutdown"); got != 1 {
		t.Errorf("drain warnings = %d, want 1", got)
	}
	// The three interactions never completed.
	if got := strings.Count(logs.String(), "never completed before shutdown"); got != 3 {
		t.Errorf("pending warnings = %d, want 3", got)
	}
}

func TestShutdownWithoutStart(t *testing.T) {
	obs, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	obs.NotifyInteraction(pingInteraction(1, 1))

	if err := obs.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if got := obs.Metrics().TotalInteractions; got != 1 {
		t.Errorf("TotalInteractions = %d, want 1", got)
	}
}

func TestStaleInteractionsAreReaped(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	obs, err := New(testConfig(), nil, WithClock(clock))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	first := pingInteraction(1, 1)
	obs.NotifyInteraction(first)

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()

	obs.NotifyInteraction(pingInteraction(2, 2))
	if obs.PendingInteractions() != 1 {
		t.Errorf("PendingInteractions = %d, want 1", obs.PendingInteractions())
	}

	obs.NotifyCompletion(first, first.Command)
	obs.Flush(context.Background())

	// The reaped interaction still completes, with a zero duration.
	latency := obs.Metrics().CommandLatency["ping"]
	if latency.Count != 1 || latency.MaxMS != 0 {
		t.Errorf("latency = %+v", latency)
	}
}

func TestConcurrentProducers(t *testing.T) {
	obs, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	obs.Start(context.Background())

	var wg sync.WaitGroup
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for n := 0; n < 20; n++ {
				i := pingInteraction(uint64(w*100+n), uint64(w+1))
				obs.NotifyInteraction(i)
				obs.NotifyCompletion(i, i.Command)
			}
		}(w)
	}
	wg.Wait()

	if err := obs.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	snap := obs.Metrics()
	if snap.TotalInteractions != 200 || snap.TotalCompletions() != 200 {
		t.Errorf("interactions %d completions %d, want 200 each", snap.TotalInteractions, snap.TotalCompletions())
	}
	if snap.UniqueUsers() != 10 {
		t.Errorf("UniqueUsers = %d, want 10", snap.UniqueUsers())
	}
}

func TestShutdownDrainsWhenConsumerIsStuck(t *testing.T) {
	obs, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// A loop that never reports back forces the deadline path.
	obs.wg.Add(1)
	defer obs.wg.Done()

	obs.NotifyInteraction(pingInteraction(1, 1))
	obs.NotifyInteraction(pingInteraction(2, 2))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = obs.Shutdown(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Shutdown error = %v, want context.Canceled", err)
	}
	if got := obs.Metrics().TotalInteractions; got != 2 {
		t.Errorf("TotalInteractions = %d, want 2", got)
	}
	if obs.QueueLen() != 0 {
		t.Errorf("QueueLen = %d after shutdown", obs.QueueLen())
	}
}

func TestFlushIsIgnoredWhileRunning(t *testing.T) {
	cfg := telemetry.DefaultConfig()
	cfg.Pipeline.FlushInterval = time.Hour

	obs, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	obs.Start(context.Background())

	obs.NotifyInteraction(pingInteraction(1, 1))
	if n := obs.Flush(context.Background()); n != 0 {
		t.Errorf("Flush = %d while running, want 0", n)
	}
	if obs.QueueLen() != 1 {
		t.Errorf("QueueLen = %d, want 1", obs.QueueLen())
	}

	if err := obs.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if got := obs.Metrics().TotalInteractions; got != 1 {
		t.Errorf("TotalInteractions = %d, want 1", got)
	}
}

func TestSecondObserverOnSameTelemetry(t *testing.T) {
	tel := telemetry.NewNopTelemetry()

	if _, err := New(testConfig(), tel); err != nil {
		t.Fatalf("first New failed: %v", err)
	}
	_, err := New(testConfig(), tel)
	if !errors.Is(err, telemetry.ErrMetricRegistered) {
		t.Fatalf("second New error = %v, want ErrMetricRegistered", err)
	}
	if !strings.Contains(err.Error(), "another observer") {
		t.Errorf("error %q should name the shared telemetry", err)
	}
}
