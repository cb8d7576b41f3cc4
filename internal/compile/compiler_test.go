package compile

import (
	"context"
	"encoding/binary"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nadzzz/enlisten/internal/audio"
	"github.com/nadzzz/enlisten/internal/config"
	"github.com/nadzzz/enlisten/internal/tts"
	"github.com/nadzzz/enlisten/internal/voice"
)

const clipSamples = 10

type call struct {
	text string
	opts tts.SynthesizeOpts
}

// fakeSynth returns clipSamples of mono 24 kHz PCM whose every sample equals
// the 1-based call number.
type fakeSynth struct {
	mu          sync.Mutex
	calls       []call
	failAt      int
	contentType string
	onCall      func(n int)
}

func (f *fakeSynth) Name() string { return "fake" }
func (f *fakeSynth) Close() error { return nil }

func (f *fakeSynth) Synthesize(_ context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{text, opts})
	n := len(f.calls)
	f.mu.Unlock()

	if f.onCall != nil {
		f.onCall(n)
	}
	if n == f.failAt {
		return nil, errors.New("backend unavailable")
	}

	pcm := make([]byte, 2*clipSamples)
	for i := 0; i < clipSamples; i++ {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(n))
	}
	ct := f.contentType
	if ct == "" {
		ct = tts.ContentTypePCM
	}
	return &tts.SynthesizeResult{Audio: pcm, ContentType: ct, SampleRate: 24000, Channels: 1}, nil
}

func (f *fakeSynth) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.text
	}
	return out
}

func newCompiler(t *testing.T, synth tts.Synthesizer, mutate func(*Options)) *Compiler {
	t.Helper()
	opts := DefaultOptions()
	if mutate != nil {
		mutate(&opts)
	}
	c, err := New(synth, opts)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// run is a (value, length) pair of the decoded track.
type run struct {
	value int16
	n     int
}

func runs(samples []int16) []run {
	var out []run
	for _, s := range samples {
		if len(out) > 0 && out[len(out)-1].value == s {
			out[len(out)-1].n++
			continue
		}
		out = append(out, run{s, 1})
	}
	return out
}

func TestCompileEndToEndExample(t *testing.T) {
	synth := &fakeSynth{}
	c := newCompiler(t, synth, nil)

	art, err := c.Compile(context.Background(), "1. Hello there.\nM: Good morning.\nW: Good morning too.")
	if err != nil {
		t.Fatal(err)
	}

	wantVoices := []string{"alloy", "echo", "alloy"}
	if len(synth.calls) != len(wantVoices) {
		t.Fatalf("calls = %d, want %d", len(synth.calls), len(wantVoices))
	}
	for i, want := range wantVoices {
		if got := synth.calls[i].opts.Voice; got != want {
			t.Errorf("call %d voice = %q, want %q", i, got, want)
		}
	}
	if got := synth.calls[0].text; got != "1번. Hello there." {
		t.Errorf("first text = %q", got)
	}
	if got := synth.calls[1].text; got != "Good morning." {
		t.Errorf("second text = %q", got)
	}

	if art.Sentences != 3 || art.Chunks != 3 {
		t.Errorf("sentences/chunks = %d/%d, want 3/3", art.Sentences, art.Chunks)
	}
	if art.LineGaps != 3 {
		t.Errorf("line gaps = %d, want 3 (one after every chunk)", art.LineGaps)
	}
	if art.QuestionGaps != 0 {
		t.Errorf("question gaps = %d, want 0", art.QuestionGaps)
	}

	// 3 clips of 10 samples plus 3 × 700 ms at 24 kHz.
	wantDur := time.Duration(3*clipSamples+3*16800) * time.Second / 24000
	if art.Duration != wantDur {
		t.Errorf("duration = %v, want %v", art.Duration, wantDur)
	}
	if art.ContentType != "audio/wav" || art.Container != audio.WAV {
		t.Errorf("content type = %q container = %q", art.ContentType, art.Container)
	}
	if art.Disclosure == "" {
		t.Error("missing disclosure")
	}
	if art.RunID == "" {
		t.Error("missing run id")
	}
}

func TestCompileSegmentOrder(t *testing.T) {
	synth := &fakeSynth{}
	c := newCompiler(t, synth, func(o *Options) {
		o.LineGap = time.Millisecond         // 24 frames
		o.QuestionGap = 2 * time.Millisecond // 48 frames
	})

	text := strings.Join([]string{
		"1. A.",
		"M: B.",
		"2. C.",
		"3.",
		"W: D.",
		"3. E.",
	}, "\n")
	art, err := c.Compile(context.Background(), text)
	if err != nil {
		t.Fatal(err)
	}

	track, err := audio.Decode(&tts.SynthesizeResult{Audio: art.Audio, ContentType: art.ContentType})
	if err != nil {
		t.Fatal(err)
	}
	want := []run{
		{1, 10}, {0, 24},
		{2, 10}, {0, 24 + 48},
		{3, 10}, {0, 24 + 48},
		{4, 10}, {0, 24},
		{5, 10}, {0, 24},
	}
	got := runs(track.Samples)
	if len(got) != len(want) {
		t.Fatalf("runs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("run %d = %v, want %v", i, got[i], want[i])
		}
	}

	if art.Chunks != 5 || art.LineGaps != 5 || art.QuestionGaps != 2 {
		t.Errorf("chunks/line/question = %d/%d/%d, want 5/5/2", art.Chunks, art.LineGaps, art.QuestionGaps)
	}
	if art.Sentences != 6 {
		t.Errorf("sentences = %d, want 6", art.Sentences)
	}
}

func TestCompileSilenceCounts(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		lines     int
		questions int
	}{
		{"single line", "Hello.", 1, 0},
		{"one question", "1. A.\nB.\nC.", 3, 0},
		{"four questions", "1. A.\n2. B.\n3. C.\n4. D.", 4, 3},
		{"repeated number", "1. A.\n1. B.\n2. C.", 3, 1},
		{"leading zero is the same question", "1. A.\n01. B.", 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCompiler(t, &fakeSynth{}, nil)
			art, err := c.Compile(context.Background(), tt.text)
			if err != nil {
				t.Fatal(err)
			}
			if art.LineGaps != tt.lines {
				t.Errorf("line gaps = %d, want %d", art.LineGaps, tt.lines)
			}
			if art.QuestionGaps != tt.questions {
				t.Errorf("question gaps = %d, want %d", art.QuestionGaps, tt.questions)
			}
		})
	}
}

func TestCompileAbortsOnSynthesisFailure(t *testing.T) {
	synth := &fakeSynth{failAt: 2}
	c := newCompiler(t, synth, nil)

	art, err := c.Compile(context.Background(), "A.\nB.\nC.")
	if art != nil {
		t.Error("expected no artifact")
	}
	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("err = %v, want *SynthesisError", err)
	}
	if synthErr.Index != 1 || synthErr.Text != "B." {
		t.Errorf("error = %+v", synthErr)
	}
	if n := len(synth.calls); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestCompileDecodeFailure(t *testing.T) {
	c := newCompiler(t, &fakeSynth{contentType: "audio/opus"}, nil)
	_, err := c.Compile(context.Background(), "Hello.")
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("err = %v, want *DecodeError", err)
	}
	if !errors.Is(err, audio.ErrUnsupportedContentType) {
		t.Errorf("err = %v does not wrap ErrUnsupportedContentType", err)
	}
}

func TestCompileEmptyScript(t *testing.T) {
	for _, text := range []string{"", "   \n\n", "1.\n2.", "... !!!", "W:"} {
		synth := &fakeSynth{}
		c := newCompiler(t, synth, nil)
		_, err := c.Compile(context.Background(), text)
		if !errors.Is(err, ErrEmptyScript) {
			t.Errorf("Compile(%q) err = %v, want ErrEmptyScript", text, err)
		}
		if len(synth.calls) != 0 {
			t.Errorf("Compile(%q) made %d calls", text, len(synth.calls))
		}
	}
}

func TestCompileCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	synth := &fakeSynth{onCall: func(n int) {
		if n == 1 {
			cancel()
		}
	}}
	c := newCompiler(t, synth, nil)

	_, err := c.Compile(ctx, "A.\nB.\nC.")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if n := len(synth.calls); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestCompileSkipsEmptyQuestionLine(t *testing.T) {
	synth := &fakeSynth{}
	c := newCompiler(t, synth, nil)

	art, err := c.Compile(context.Background(), "1.\nW: Where is the library?\n2번.\nM: Next to the bank.")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Where is the library?", "Next to the bank."}
	got := synth.texts()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("texts = %q, want %q", got, want)
	}
	if art.QuestionGaps != 1 {
		t.Errorf("question gaps = %d, want 1", art.QuestionGaps)
	}
}

func TestCompileSpeaksNumericLines(t *testing.T) {
	synth := &fakeSynth{}
	c := newCompiler(t, synth, nil)

	art, err := c.Compile(context.Background(), "1. W: What year did it open?\nM: 1998.\nW: And the price?\nM: 25,000.")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"1번. What year did it open?", "1998.", "And the price?", "25,000."}
	if got := synth.texts(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("texts = %q, want %q", got, want)
	}
	for i, v := range []string{"alloy", "echo", "alloy", "echo"} {
		if got := synth.calls[i].opts.Voice; got != v {
			t.Errorf("call %d voice = %q, want %q", i, got, v)
		}
	}
	if art.Chunks != 4 || art.Sentences != 4 {
		t.Errorf("chunks/sentences = %d/%d, want 4/4", art.Chunks, art.Sentences)
	}
}

func TestCompileEmptyBackendResponse(t *testing.T) {
	c := newCompiler(t, emptySynth{}, nil)
	_, err := c.Compile(context.Background(), "Hello.")
	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("err = %v, want *SynthesisError", err)
	}
	if !errors.Is(err, ErrNoAudio) {
		t.Errorf("err = %v does not wrap ErrNoAudio", err)
	}
	var decErr *DecodeError
	if errors.As(err, &decErr) {
		t.Error("empty response reported as a decode error")
	}
}

// emptySynth answers every request with a zero-length body.
type emptySynth struct{}

func (emptySynth) Name() string { return "empty" }
func (emptySynth) Close() error { return nil }
func (emptySynth) Synthesize(context.Context, string, tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	return &tts.SynthesizeResult{ContentType: tts.ContentTypePCM, SampleRate: 24000, Channels: 1}, nil
}

func TestCompileResamplesMixedRates(t *testing.T) {
	// Korean and English served by backends with different native rates.
	synth := &rateSynth{rates: map[string]int{"ko": 16000, "en": 22050}}
	c := newCompiler(t, synth, func(o *Options) {
		o.SampleRate = 22050
		o.LineGap = 0
	})

	art, err := c.Compile(context.Background(), "안녕하세요.\nHello.")
	if err != nil {
		t.Fatal(err)
	}
	if art.Format.SampleRate != 22050 {
		t.Errorf("track rate = %d, want 22050", art.Format.SampleRate)
	}
	// 1600 frames at 16 kHz and 2205 at 22.05 kHz are both 100 ms.
	if art.Duration != 200*time.Millisecond {
		t.Errorf("duration = %s, want 200ms", art.Duration)
	}
}

// rateSynth returns 100 ms of mono PCM at a per-language rate.
type rateSynth struct{ rates map[string]int }

func (*rateSynth) Name() string { return "rates" }
func (*rateSynth) Close() error { return nil }
func (s *rateSynth) Synthesize(_ context.Context, _ string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	rate := s.rates[opts.Language]
	return &tts.SynthesizeResult{
		Audio:       make([]byte, 2*rate/10),
		ContentType: tts.ContentTypePCM,
		SampleRate:  rate,
		Channels:    1,
	}, nil
}

func TestCompilePassesRunSettings(t *testing.T) {
	synth := &fakeSynth{}
	c := newCompiler(t, synth, func(o *Options) {
		o.Speed = 1.25
		o.Instructions = "calm"
	})
	if _, err := c.Compile(context.Background(), "안녕하세요.\nHello."); err != nil {
		t.Fatal(err)
	}
	for i, want := range []struct{ voice, lang string }{{"nova", "ko"}, {"nova", "en"}} {
		got := synth.calls[i].opts
		if got.Voice != want.voice || got.Language != want.lang || got.Speed != 1.25 || got.Instructions != "calm" {
			t.Errorf("call %d opts = %+v", i, got)
		}
	}
}

func TestCompileConcurrentRunsAreIndependent(t *testing.T) {
	synth := &fakeSynth{}
	c := newCompiler(t, synth, func(o *Options) {
		o.Policies.Female = voice.Policy{Kind: voice.Order}
	})

	const runsN = 8
	text := "1. W: A.\n2. W: B.\n3. W: C."
	var wg sync.WaitGroup
	plans := make([]*Plan, runsN)
	errs := make([]error, runsN)
	for i := range runsN {
		wg.Add(1)
		go func() {
			defer wg.Done()
			art, err := c.Compile(context.Background(), text)
			errs[i] = err
			if art != nil {
				plans[i] = art.Plan
			}
		}()
	}
	wg.Wait()

	for i := range runsN {
		if errs[i] != nil {
			t.Fatalf("run %d: %v", i, errs[i])
		}
		var voices []string
		for _, cue := range plans[i].Cues {
			voices = append(voices, cue.Voice)
		}
		if got := strings.Join(voices, ","); got != "fable,nova,shimmer" {
			t.Errorf("run %d voices = %s", i, got)
		}
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		field  string
	}{
		{"speed too high", func(o *Options) { o.Speed = 3 }, "speed"},
		{"speed too low", func(o *Options) { o.Speed = 0.1 }, "speed"},
		{"negative gap", func(o *Options) { o.LineGap = -time.Second }, "line_gap"},
		{"rotating korean", func(o *Options) { o.Policies.Korean = voice.Policy{Kind: voice.Random} }, "voices"},
		{"container", func(o *Options) { o.Container = "ogg" }, "container"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			_, err := New(&fakeSynth{}, opts)
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("err = %v, want *ConfigurationError", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.CompileConfig{
		Speed:       1.1,
		KoreanVoice: "nova",
		FemaleVoice: "random",
		MaleVoice:   "sequential",
		Voices:      config.VoiceSets{Female: []string{"alloy", "fable"}, Male: []string{"echo", "onyx"}},
		LineGap:     time.Second,
		QuestionGap: 5 * time.Second,
		Container:   "wav",
		Announce:    config.AnnounceConfig{Language: "en", Numerals: "words"},
		SampleRate:  24000,
		Seed:        42,
	}
	opts, err := OptionsFromConfig(cfg, "calm")
	if err != nil {
		t.Fatal(err)
	}
	if opts.Policies.Female.Kind != voice.Random || opts.Policies.Male.Kind != voice.Order {
		t.Errorf("policies = %+v", opts.Policies)
	}
	if opts.Announcer.Announce(3) != "Number three." {
		t.Errorf("announcer = %+v", opts.Announcer)
	}
	if opts.Instructions != "calm" || opts.Seed != 42 {
		t.Errorf("opts = %+v", opts)
	}

	cfg.Speed = 2
	_, err = OptionsFromConfig(cfg, "")
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("err = %v, want *ConfigurationError", err)
	}
}

func TestSeededRandomIsReproducible(t *testing.T) {
	mutate := func(o *Options) {
		o.Seed = 99
		o.Policies.Female = voice.Policy{Kind: voice.Random}
		o.Policies.Male = voice.Policy{Kind: voice.Random}
	}
	text := "1. W: A.\nM: B.\n2. W: C.\nM: D.\n3. W: E.\nM: F."

	a, err := newCompiler(t, &fakeSynth{}, mutate).Plan(text)
	if err != nil {
		t.Fatal(err)
	}
	b, err := newCompiler(t, &fakeSynth{}, mutate).Plan(text)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Cues {
		if a.Cues[i].Voice != b.Cues[i].Voice {
			t.Errorf("cue %d voice %q != %q", i, a.Cues[i].Voice, b.Cues[i].Voice)
		}
	}
}
