package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"

	"github.com/austinkregel/local-media/ampd/internal/config"
	"github.com/austinkregel/local-media/ampd/internal/ipc"
	"github.com/austinkregel/local-media/ampd/internal/transport"
)

type SocketParams struct {
	Socket string `optional:"true" help:"Daemon socket path (default: $AMPD_SOCKET or /tmp/ampd-<uid>.sock)"`
}

type PathParams struct {
	Path   string `pos:"true" help:"File or folder"`
	Socket string `optional:"true" help:"Daemon socket path"`
}

type SeekParams struct {
	Position string `pos:"true" help:"Target as m:ss, a duration like 1m30s, or milliseconds"`
	Socket   string `optional:"true" help:"Daemon socket path"`
}

type VolumeParams struct {
	Level  int    `pos:"true" help:"Volume from 0 to 100"`
	Socket string `optional:"true" help:"Daemon socket path"`
}

type ModeParams struct {
	Value  string `pos:"true" optional:"true" help:"New value; cycles or toggles when omitted"`
	Socket string `optional:"true" help:"Daemon socket path"`
}

type StatusParams struct {
	JSON   bool   `optional:"true" help:"Print the raw status as JSON"`
	Pretty bool   `short:"p" optional:"true" help:"Draw a now-playing card instead of the status line"`
	Socket string `optional:"true" help:"Daemon socket path"`
}

type EventsParams struct {
	Ticks  bool   `optional:"true" help:"Include the periodic status ticks"`
	Socket string `optional:"true" help:"Daemon socket path"`
}

func clientCmds() []*cobra.Command {
	return []*cobra.Command{
		pathCmd("open", "Open a folder as the queue", ipc.CmdOpenFolder),
		pathCmd("file", "Play a single file", ipc.CmdOpenFile),
		pathCmd("jump", "Play a file, adding it to the queue if needed", ipc.CmdDoubleClickFile),
		simpleCmd("play", "Start or resume playback", ipc.CmdPlay),
		simpleCmd("pause", "Pause playback", ipc.CmdPause),
		simpleCmd("stop", "Stop playback", ipc.CmdStop),
		simpleCmd("toggle", "Toggle between play and pause", ipc.CmdPlayPause),
		simpleCmd("next", "Skip to the next track", ipc.CmdNext),
		simpleCmd("prev", "Go back to the previous track", ipc.CmdPrev),
		seekCmd(),
		volumeCmd(),
		shuffleCmd(),
		loopCmd(),
		statusCmd(),
		queueCmd(),
		eventsCmd(),
	}
}

// withClient dials the daemon and runs fn, exiting on failure
func withClient(socket string, fn func(c *ipc.Client) error) {
	if socket == "" {
		socket = config.LoadEnv().SocketPath
	}
	c, err := ipc.Dial(socket)
	if err == nil {
		err = fn(c)
		c.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ampd: %v\n", err)
		os.Exit(1)
	}
}

func simpleCmd(use, short string, cmd ipc.CommandType) *cobra.Command {
	return boa.CmdT[SocketParams]{
		Use:         use,
		Short:       short,
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *SocketParams, _ *cobra.Command, _ []string) {
			withClient(params.Socket, func(c *ipc.Client) error {
				return c.Call(cmd, nil, nil)
			})
		},
	}.ToCobra()
}

func pathCmd(use, short string, cmd ipc.CommandType) *cobra.Command {
	return boa.CmdT[PathParams]{
		Use:         use,
		Short:       short,
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *PathParams, _ *cobra.Command, _ []string) {
			withClient(params.Socket, func(c *ipc.Client) error {
				// The daemon may run in another working directory
				path, err := filepath.Abs(params.Path)
				if err != nil {
					return err
				}
				return c.Call(cmd, ipc.PathRequest{Path: path}, nil)
			})
		},
	}.ToCobra()
}

func seekCmd() *cobra.Command {
	return boa.CmdT[SeekParams]{
		Use:         "seek",
		Short:       "Jump to a position in the current track",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *SeekParams, _ *cobra.Command, _ []string) {
			withClient(params.Socket, func(c *ipc.Client) error {
				ms, err := parsePosition(params.Position)
				if err != nil {
					return err
				}
				return c.Call(ipc.CmdSeek, ipc.SeekRequest{Position: ms}, nil)
			})
		},
	}.ToCobra()
}

func volumeCmd() *cobra.Command {
	return boa.CmdT[VolumeParams]{
		Use:         "volume",
		Short:       "Set the volume",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *VolumeParams, _ *cobra.Command, _ []string) {
			withClient(params.Socket, func(c *ipc.Client) error {
				return c.Call(ipc.CmdVolume, ipc.VolumeRequest{Level: params.Level}, nil)
			})
		},
	}.ToCobra()
}

func shuffleCmd() *cobra.Command {
	return boa.CmdT[ModeParams]{
		Use:         "shuffle",
		Short:       "Toggle shuffle, or set it with on/off",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *ModeParams, _ *cobra.Command, _ []string) {
			withClient(params.Socket, func(c *ipc.Client) error {
				if params.Value == "" {
					return c.Call(ipc.CmdToggleShuffle, nil, nil)
				}
				on, err := parseSwitch(params.Value)
				if err != nil {
					return err
				}
				return c.Call(ipc.CmdSetShuffle, ipc.SetShuffleRequest{Enabled: on}, nil)
			})
		},
	}.ToCobra()
}

func loopCmd() *cobra.Command {
	return boa.CmdT[ModeParams]{
		Use:         "loop",
		Short:       "Cycle the loop mode, or set it to off, all or one",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *ModeParams, _ *cobra.Command, _ []string) {
			withClient(params.Socket, func(c *ipc.Client) error {
				if params.Value == "" {
					return c.Call(ipc.CmdCycleLoop, nil, nil)
				}
				return c.Call(ipc.CmdSetLoop, ipc.SetLoopRequest{Mode: params.Value}, nil)
			})
		},
	}.ToCobra()
}

func statusCmd() *cobra.Command {
	return boa.CmdT[StatusParams]{
		Use:         "status",
		Short:       "Show what is playing",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *StatusParams, _ *cobra.Command, _ []string) {
			withClient(params.Socket, func(c *ipc.Client) error {
				var st ipc.StatusResponse
				if err := c.Call(ipc.CmdStatus, nil, &st); err != nil {
					return err
				}
				switch {
				case params.JSON:
					data, err := json.MarshalIndent(st, "", "  ")
					if err != nil {
						return err
					}
					fmt.Println(string(data))
				case params.Pretty:
					fmt.Println(renderStatus(st))
				default:
					fmt.Println(st.Line)
				}
				return nil
			})
		},
	}.ToCobra()
}

func queueCmd() *cobra.Command {
	return boa.CmdT[SocketParams]{
		Use:         "queue",
		Short:       "List the queue",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *SocketParams, _ *cobra.Command, _ []string) {
			withClient(params.Socket, func(c *ipc.Client) error {
				var q ipc.GetQueueResponse
				if err := c.Call(ipc.CmdGetQueue, nil, &q); err != nil {
					return err
				}
				if len(q.Items) == 0 {
					fmt.Println("Queue is empty")
					return nil
				}
				fmt.Println(renderQueue(q, termWidth()))
				return nil
			})
		},
	}.ToCobra()
}

func eventsCmd() *cobra.Command {
	return boa.CmdT[EventsParams]{
		Use:         "events",
		Short:       "Print player events as they happen",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *EventsParams, _ *cobra.Command, _ []string) {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			withClient(params.Socket, func(c *ipc.Client) error {
				return c.Subscribe(ctx, func(msg *ipc.PushMessage) {
					if !params.Ticks && msg.Type == string(transport.KindStatusTick) {
						return
					}
					fmt.Printf("%s %s\n", msg.Type, msg.Data)
				})
			})
		},
	}.ToCobra()
}
