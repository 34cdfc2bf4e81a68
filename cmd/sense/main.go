// Command sense runs the full perception-to-feedback pipeline: camera
// frames through object detection into announcements, captions and
// speech; live transcription captions; narration; hearing simulation;
// and the web dashboard that renders and controls it all.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/a11ykit/go-sense/internal/config"
	"github.com/a11ykit/go-sense/internal/log"
	"github.com/a11ykit/go-sense/pkg/announce"
	"github.com/a11ykit/go-sense/pkg/camera"
	"github.com/a11ykit/go-sense/pkg/caption"
	"github.com/a11ykit/go-sense/pkg/detect"
	"github.com/a11ykit/go-sense/pkg/hearing"
	"github.com/a11ykit/go-sense/pkg/narrate"
	"github.com/a11ykit/go-sense/pkg/scene"
	"github.com/a11ykit/go-sense/pkg/speech"
	"github.com/a11ykit/go-sense/pkg/transcribe"
	"github.com/a11ykit/go-sense/pkg/web"
)

func main() {
	log.Init(config.Env("SENSE_LOG_LEVEL", "info"))
	logger := log.With("component", "main")

	var langMu sync.Mutex
	lang := config.SpeechLang()
	currentLang := func() string {
		langMu.Lock()
		defer langMu.Unlock()
		return lang
	}

	// Speech: one synthesizer, one paced playback engine, shared between
	// the announcement and narration channels by the arbiter.
	var synth speech.Synthesizer
	if url := config.SynthesizerURL(); url != "" {
		remote, err := speech.NewRemote(
			speech.WithEndpoint(url),
			speech.WithAPIKey(config.SynthesizerKey()),
		)
		if err != nil {
			logger.Error("tts setup failed", "error", err)
			os.Exit(1)
		}
		synth = remote
	} else {
		// No backend configured: silent clips keep utterance timing so
		// the rest of the pipeline behaves normally.
		logger.Warn("no tts endpoint configured, speech will be silent")
		synth = &speech.MockSynthesizer{}
	}

	engine := speech.NewEngine(synth, &speech.PacedSink{})
	policy := speech.ParsePolicy(config.Env("SENSE_SPEECH_POLICY", "lastwrite"))
	arbiter := speech.NewArbiter(engine, policy)

	// Hearing simulation route and its live-audio ingest.
	graph := hearing.NewGraph(hearing.DefaultSampleRate)
	ingest, err := hearing.NewRTPSource(hearing.DefaultSampleRate, 2)
	if err != nil {
		logger.Error("audio ingest setup failed", "error", err)
		os.Exit(1)
	}
	defer ingest.Close()

	// Detection announcements: captions always, speech unless muted.
	detCaptions := caption.NewBuffer(caption.DefaultMaxLines)
	announceQueue := speech.NewQueue(arbiter.Channel(speech.ChannelAnnounce))
	router := announce.NewRouter(detCaptions, announceQueue, lang)
	router.Muted = func() bool { return graph.Mode() == hearing.ModeMute }

	// Detector and camera.
	detector, err := detect.NewYOLO(detect.Config{
		ModelPath:        config.ModelPath(),
		ConfidenceThresh: 0.5,
		NMSThresh:        0.45,
		InputWidth:       640,
		InputHeight:      640,
	})
	if err != nil {
		logger.Error("detector setup failed", "error", err)
		os.Exit(1)
	}
	defer detector.Close()

	camCfg := camera.DefaultConfig()
	camCfg.DeviceID = config.CameraID()
	source, err := camera.OpenWebcam(camCfg)
	if err != nil {
		logger.Error("camera setup failed", "error", err)
		os.Exit(1)
	}
	defer source.Close()

	session := scene.NewSession(source, detector, router, detCaptions, scene.Config{})

	// Transcription into its own caption buffer.
	trCaptions := caption.NewBuffer(caption.DefaultMaxLines)
	recognizer := transcribe.NewWSRecognizer(
		transcribe.DefaultWSConfig(config.RecognizerURL(), config.RecognizerKey()))
	pipeline := transcribe.NewPipeline(recognizer, trCaptions, transcribe.Config{Lang: lang})

	// Narration on the second speech channel.
	narrator := narrate.NewQueue(arbiter.Channel(speech.ChannelNarrate))

	server := web.NewServer(config.WebPort(), web.Controls{
		DetectStart: session.Start,
		DetectStop:  session.Stop,
		HearingMode: func(name string) error {
			switch name {
			case "normal", "mute", "lowpass", "highpass":
			default:
				return fmt.Errorf("unknown hearing mode %q", name)
			}
			mode := hearing.ParseMode(name)
			graph.SetMode(mode)

			// Transcription runs whenever a simulation mode is active.
			if mode == hearing.ModeNormal {
				pipeline.Stop()
			} else if err := pipeline.Start(); err != nil {
				logger.Warn("transcription unavailable", "error", err)
			}
			return nil
		},
		NarrateStart: func(items []string, speed string, loop, chunked bool) error {
			granularity := narrate.PerItem
			if chunked {
				granularity = narrate.Chunked
			}

			voicesCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			voices, err := synth.Voices(voicesCtx)
			cancel()
			if err != nil {
				voices = nil
			}

			return narrator.Start(items, narrate.Config{
				Lang:        currentLang(),
				Speed:       narrate.ParseSpeed(speed),
				Loop:        loop,
				Granularity: granularity,
				Voices:      voices,
			})
		},
		NarrateStop: narrator.Stop,
		SetLanguage: func(l string) {
			langMu.Lock()
			lang = l
			langMu.Unlock()
			router.SetLanguage(l)
			pipeline.SetLanguage(l)
		},
		Audio: func(packet []byte) ([]byte, error) {
			samples, err := ingest.DecodePacket(packet)
			if err != nil {
				return nil, err
			}
			// Recognition gets the clean audio; the filtered route is
			// what the user hears.
			pipeline.Feed(hearing.SamplesToBytes(
				hearing.Resample(samples, ingest.SampleRate(), transcribe.DefaultSampleRate)))
			return hearing.SamplesToBytes(graph.Process(samples)), nil
		},
	})

	// Pipeline events feed the dashboard.
	session.OnFrame = func(f scene.Frame) {
		server.SendOverlay(f.Detections)
		server.SendFrame(f.JPEG)
	}
	session.OnError = func(err error) {
		server.UpdateState(func(st *web.State) { st.Detecting = false })
	}
	router.OnAnnounce = func(e announce.Event) {
		server.PushCaption("detection", e.Text)
	}
	trCaptions.OnChange = func(lines []caption.Entry) {
		if len(lines) > 0 {
			server.PushCaption("transcript", lines[0].Text)
		}
	}
	pipeline.OnState = func(s transcribe.State) {
		server.UpdateState(func(st *web.State) {
			st.Listening = s == transcribe.Listening
		})
	}

	// Periodic status refresh: session counters, audio level, holders.
	go func() {
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			level := graph.Analyser().Level()
			_, speaking := arbiter.Holder()
			server.UpdateState(func(st *web.State) {
				st.Detecting = session.Active()
				st.Narrating = narrator.Active()
				st.Speaking = speaking
				st.HearingMode = graph.Mode().String()
				st.Lang = currentLang()
				st.AudioRMS = level.RMS
				st.AudioDBFS = level.DBFS
				st.SessionID = session.ID()
				st.FramesProcessed = session.Stats().Frames
			})
		}
	}()

	server.StartAsync()
	logger.Info("sense pipeline ready",
		"port", config.WebPort(), "lang", lang, "policy", config.Env("SENSE_SPEECH_POLICY", "lastwrite"))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	session.Stop()
	pipeline.Stop()
	narrator.Stop()
	announceQueue.Cancel()
	server.Shutdown()
	engine.Close()
}
