// Package app wires the PiDog front-end together and owns its lifecycle.
//
// New validates the configuration, Init connects the robot and builds every
// component, Run starts the workers and the conversation loop, and Shutdown
// releases the hardware. Shutdown must run on every exit path.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-pidog/internal/config"
	"github.com/teslashibe/go-pidog/internal/httpc"
	"github.com/teslashibe/go-pidog/internal/log"
	"github.com/teslashibe/go-pidog/pkg/actionflow"
	"github.com/teslashibe/go-pidog/pkg/assistant"
	"github.com/teslashibe/go-pidog/pkg/audio"
	"github.com/teslashibe/go-pidog/pkg/audioio"
	"github.com/teslashibe/go-pidog/pkg/camera"
	"github.com/teslashibe/go-pidog/pkg/conversation"
	"github.com/teslashibe/go-pidog/pkg/dispatch"
	"github.com/teslashibe/go-pidog/pkg/inference"
	"github.com/teslashibe/go-pidog/pkg/robot"
	"github.com/teslashibe/go-pidog/pkg/speech"
	"github.com/teslashibe/go-pidog/pkg/stt"
	"github.com/teslashibe/go-pidog/pkg/tts"
	"github.com/teslashibe/go-pidog/pkg/web"
)

// StartPosture is the posture the robot takes before the first turn.
const StartPosture = "sit"

// shutdownTimeout bounds the calls made to the daemon while exiting.
const shutdownTimeout = 5 * time.Second

// ErrActionBusy is returned when a manual action arrives while the robot
// is thinking or a batch runs.
var ErrActionBusy = errors.New("app: robot is busy")

// App is the PiDog application.
type App struct {
	cfg    config.Config
	logger *slog.Logger

	// Robot
	robot   *robot.HTTPController
	catalog *actionflow.Catalog
	flow    *actionflow.Flow

	// Workers
	queue      *speech.Queue
	dispatcher *dispatch.Dispatcher

	// Conversation
	assistant *assistant.Assistant
	driver    *conversation.Driver

	// Microphone, nil in keyboard mode
	source audioio.Source

	// Camera and dashboard, nil when images are disabled
	capture   *camera.Capture
	cameraMgr *camera.Manager
	web       *web.Server
}

// New creates an application. Environment overrides must already be
// applied to cfg.
func New(cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &App{
		cfg:    cfg,
		logger: log.Component("app"),
	}, nil
}

// Init builds every component and puts the robot in its start posture.
// Call Shutdown even when Init fails.
func (a *App) Init(ctx context.Context) error {
	a.logger.Info("starting PiDog",
		"input", a.cfg.InputMode,
		"with_image", a.cfg.WithImage,
		"llm", a.cfg.LLMProvider,
		"tts", a.cfg.TTSProvider,
	)

	cloud, err := httpc.CloudClient(a.cfg.SocksProxy)
	if err != nil {
		return fmt.Errorf("cloud client: %w", err)
	}

	if err := a.initRobot(ctx); err != nil {
		return fmt.Errorf("robot: %w", err)
	}
	if err := a.initAssistant(cloud); err != nil {
		return fmt.Errorf("assistant: %w", err)
	}
	synth, err := a.initSpeech(ctx, cloud)
	if err != nil {
		return fmt.Errorf("speech: %w", err)
	}
	input, err := a.initInput(ctx, cloud)
	if err != nil {
		return fmt.Errorf("input: %w", err)
	}
	if a.cfg.WithImage {
		if err := a.initCamera(); err != nil {
			a.logger.Warn("camera unavailable, continuing without images", "error", err)
		} else {
			a.initWeb()
		}
	}

	deps := conversation.Deps{
		Input:       input,
		Assistant:   a.assistant,
		Synthesizer: synth,
		Speech:      a.queue,
		Actions:     a.dispatcher,
		Indicator:   a.robot,
	}
	if a.capture != nil {
		deps.Camera = a.capture
	}
	a.driver, err = conversation.New(deps, conversation.WithImage(a.capture != nil))
	if err != nil {
		return fmt.Errorf("conversation: %w", err)
	}
	a.observe()

	return nil
}

// initRobot connects to the daemon, turns the LED strip off and sits down.
func (a *App) initRobot(ctx context.Context) error {
	a.robot = robot.NewHTTPController(a.cfg.PiDogURL()).
		WithHTTPClient(httpc.NewClient(httpc.RobotTimeout))

	status, err := a.robot.DaemonStatus(ctx)
	if err != nil {
		return fmt.Errorf("daemon at %s: %w", a.cfg.PiDogURL(), err)
	}
	a.logger.Info("robot connected", "url", a.cfg.PiDogURL(), "state", status.State)

	a.catalog, err = actionflow.DefaultCatalog()
	if err != nil {
		return err
	}
	a.flow = actionflow.New(a.robot, a.catalog)
	a.dispatcher = dispatch.New(a.flow)

	if err := a.robot.CloseLED(ctx); err != nil {
		a.logger.Warn("turn off LED strip", "error", err)
	}
	if err := a.flow.ChangeStatus(ctx, StartPosture); err != nil {
		return fmt.Errorf("start posture: %w", err)
	}
	return nil
}

// modelOptions are the provider options shared by both language models.
func (a *App) modelOptions(cloud *http.Client, key, model string) []inference.Option {
	return []inference.Option{
		inference.WithAPIKey(key),
		inference.WithModel(model),
		inference.WithHTTPClient(cloud),
		inference.WithTemperature(a.cfg.Temperature),
		inference.WithMaxTokens(a.cfg.MaxTokens),
	}
}

// initAssistant builds the language model chain. The selected provider
// goes first; the other one is a fallback when its key is set.
func (a *App) initAssistant(cloud *http.Client) error {
	var providers []inference.Provider

	gemini := func() error {
		p, err := inference.NewGemini(a.modelOptions(cloud, a.cfg.GeminiAPIKey, a.cfg.GeminiModel)...)
		if err != nil {
			return err
		}
		providers = append(providers, p)
		return nil
	}
	openai := func() error {
		p, err := inference.NewOpenAI(a.modelOptions(cloud, a.cfg.OpenAIAPIKey, a.cfg.OpenAIModel)...)
		if err != nil {
			return err
		}
		providers = append(providers, p)
		return nil
	}

	order := []func() error{gemini, openai}
	keys := []string{a.cfg.GeminiAPIKey, a.cfg.OpenAIAPIKey}
	if a.cfg.LLMProvider == "openai" {
		order[0], order[1] = order[1], order[0]
		keys[0], keys[1] = keys[1], keys[0]
	}
	if err := order[0](); err != nil {
		return err
	}
	if keys[1] != "" {
		if err := order[1](); err != nil {
			a.logger.Warn("fallback model unavailable", "error", err)
		}
	}

	chain, err := inference.NewChainWithLogger(a.logger, providers...)
	if err != nil {
		return err
	}

	name := config.DefaultAssistantName
	a.assistant = assistant.New(chain,
		assistant.WithName(name),
		assistant.WithSystemPrompt(assistant.Prompt(name, a.catalog.Names(), a.catalog.VoiceNames())),
	)
	return nil
}

// initSpeech builds the TTS chain, the file synthesizer and the playback
// queue.
func (a *App) initSpeech(ctx context.Context, cloud *http.Client) (*conversation.FileSynthesizer, error) {
	var providers []tts.Provider

	google := func() error {
		p, err := tts.NewGoogle(ctx,
			tts.WithAPIKey(a.cfg.GoogleAPIKey),
			tts.WithLanguage(a.cfg.LanguageCode()),
			tts.WithHTTPClient(cloud),
		)
		if err != nil {
			return err
		}
		providers = append(providers, p)
		return nil
	}
	openai := func() error {
		p, err := tts.NewOpenAI(
			tts.WithAPIKey(a.cfg.OpenAIAPIKey),
			tts.WithHTTPClient(cloud),
		)
		if err != nil {
			return err
		}
		providers = append(providers, p)
		return nil
	}

	switch a.cfg.TTSProvider {
	case "openai":
		if err := openai(); err != nil {
			return nil, err
		}
		if err := google(); err != nil {
			a.logger.Debug("google tts fallback unavailable", "error", err)
		}
	default:
		if err := google(); err != nil {
			return nil, err
		}
		if a.cfg.OpenAIAPIKey != "" {
			if err := openai(); err != nil {
				a.logger.Warn("openai tts fallback unavailable", "error", err)
			}
		}
	}

	chain, err := tts.NewChainWithLogger(a.logger, providers...)
	if err != nil {
		return nil, err
	}

	a.queue = speech.NewQueue(audio.NewPlayer())
	return conversation.NewFileSynthesizer(chain, conversation.DefaultSpeechDir, a.cfg.VolumeDB), nil
}

// initInput returns the keyboard or microphone input.
func (a *App) initInput(ctx context.Context, cloud *http.Client) (conversation.Capture, error) {
	if a.cfg.InputMode == config.InputKeyboard {
		return conversation.NewKeyboardInput(os.Stdin, os.Stdout), nil
	}

	listenCfg := audioio.DefaultListenerConfig()
	recognizer, err := stt.NewGoogle(ctx,
		stt.WithAPIKey(a.cfg.GoogleAPIKey),
		stt.WithLanguage(a.cfg.LanguageCode()),
		stt.WithSampleRate(listenCfg.TargetRate),
		stt.WithHTTPClient(cloud),
	)
	if err != nil {
		return nil, err
	}

	a.source, err = audioio.NewSource(audioio.DefaultConfig(), nil)
	if err != nil {
		return nil, fmt.Errorf("microphone: %w", err)
	}
	listener := audioio.NewListener(a.source, listenCfg, nil)
	return conversation.NewVoiceInput(listener, recognizer), nil
}

// initCamera opens the camera. Dashboard edits are applied to the live
// capture.
func (a *App) initCamera() error {
	cfg := camera.DefaultConfig()
	cfg.Device = a.cfg.CameraDevice

	capture, err := camera.Open(cfg)
	if err != nil {
		return err
	}
	a.capture = capture
	a.cameraMgr = camera.NewManager(cfg)
	a.cameraMgr.OnConfigChange = capture.Apply
	return nil
}

// initWeb builds the dashboard.
func (a *App) initWeb() {
	var actions []web.ActionInfo
	for _, name := range a.catalog.Names() {
		act, _ := a.catalog.Lookup(name)
		actions = append(actions, web.ActionInfo{
			Name:        act.Name,
			Description: act.Description,
			Voice:       act.Voice,
		})
	}

	a.web = web.NewServer(a.cfg.WebPort,
		web.WithActions(actions),
		web.WithCamera(a.capture, a.cameraMgr),
	)
	a.web.OnActionTrigger = a.triggerAction
	a.web.UpdateState(func(s *web.State) {
		s.InputMode = string(a.cfg.InputMode)
		s.WithImage = true
		s.RobotConnected = true
		s.ActionStatus = a.dispatcher.Status().String()
		s.Posture = a.flow.Posture()
	})
}

// triggerAction runs one action from the dashboard.
func (a *App) triggerAction(name string) error {
	if _, ok := a.catalog.Lookup(name); !ok {
		return fmt.Errorf("unknown action %q", name)
	}
	if err := a.dispatcher.TryDispatch([]string{name}); err != nil {
		return fmt.Errorf("%w: %w", ErrActionBusy, err)
	}
	return nil
}

// observe mirrors turn progress and dispatcher state onto the dashboard.
func (a *App) observe() {
	if a.web == nil {
		return
	}

	a.dispatcher.OnStatus(func(s dispatch.Status) {
		a.web.UpdateState(func(st *web.State) {
			st.ActionStatus = s.String()
			st.CurrentAction = a.flow.Current()
			st.Posture = a.flow.Posture()
		})
	})

	a.driver.Observe(conversation.Observer{
		OnMode: func(m conversation.Mode) {
			a.web.UpdateState(func(st *web.State) {
				st.Indicator = m.Name
				st.Listening = m == conversation.ModeListen
				st.Speaking = m == conversation.ModeSpeak
			})
		},
		OnInput: func(turnID string, in conversation.Input) {
			a.web.AddConversation("user", in.Text, nil)
			a.web.UpdateState(func(st *web.State) {
				st.LastUserMessage = in.Text
			})
		},
		OnTurn: func(res conversation.TurnResult) {
			if res.Aborted {
				return
			}
			a.web.AddConversation("assistant", res.Turn.Answer, res.Turn.Actions)
			a.web.UpdateState(func(st *web.State) {
				st.LastReply = res.Turn.Answer
				st.LastActions = res.Turn.Actions
				st.Turns++
			})
			if res.Err != nil {
				a.web.AddLog("error", res.Err.Error())
			}
		},
	})
}

// Run starts the workers and runs conversation turns until ctx is
// cancelled or keyboard input ends.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.source != nil {
		if err := a.source.Start(ctx); err != nil {
			return fmt.Errorf("microphone: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.queue.Run(gctx) })
	g.Go(func() error { return a.dispatcher.Run(gctx) })

	if a.capture != nil {
		g.Go(func() error {
			if err := a.capture.Run(gctx); err != nil {
				a.logger.Error("camera stopped", "error", err)
			}
			return nil
		})
	}
	if a.web != nil {
		g.Go(func() error {
			if err := a.web.Run(gctx); err != nil {
				return fmt.Errorf("web: %w", err)
			}
			return nil
		})
		a.web.AddLog("info", "PiDog started")
	}

	g.Go(func() error {
		defer cancel()
		return a.driver.Run(gctx)
	})

	return g.Wait()
}

// Shutdown releases the camera, the robot and the microphone.
func (a *App) Shutdown() {
	a.logger.Info("shutting down")

	if a.capture != nil {
		if err := a.capture.Close(); err != nil {
			a.logger.Warn("close camera", "error", err)
		}
	}
	if a.robot != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.robot.Close(ctx); err != nil {
			a.logger.Warn("close robot", "error", err)
		}
	}
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			a.logger.Warn("close microphone", "error", err)
		}
	}
}
