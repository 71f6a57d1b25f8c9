// Command linmon shows what the LIN decoder firmware sees on the bus: an
// interactive shell over the USB report link, with optional MQTT
// forwarding.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"desklin/host/monitor"
	"desklin/lin"
	"desklin/protocol"
)

var (
	configPath = flag.String("config", "", "JSON config file")
	device     = flag.String("device", "", "Serial device path (overrides config)")
	baud       = flag.Int("baud", 0, "Baud rate (overrides config, ignored for USB CDC)")
	checksum   = flag.String("checksum", "", "Force checksum version: classic or enhanced")
	broker     = flag.String("mqtt", "", "MQTT broker URL, e.g. mqtt://host:1883/desk/")
	evalOnly   = flag.Bool("e", false, "Run the command given as arguments and exit")
)

const monitorKey = "$monitor"

func loadConfig() (*monitor.Config, error) {
	cfg := monitor.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = monitor.LoadConfigFile(*configPath); err != nil {
			return nil, err
		}
	}
	if *device != "" {
		cfg.Serial.Device = *device
	}
	if *baud != 0 {
		cfg.Serial.Baud = *baud
	}
	if *checksum != "" {
		cfg.Checksum = *checksum
	}
	if *broker != "" {
		cfg.MQTT.Broker = *broker
	}
	return cfg, nil
}

func main() {
	flag.Parse()
	defer glog.Flush()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var pub monitor.Publisher
	if cfg.MQTT.Broker != "" {
		p, err := monitor.NewMQTTPublisher(cfg.MQTT)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		pub = p
	}

	mon, err := monitor.New(cfg, pub)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := mon.Connect(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer mon.Close()

	shell := ishell.New()
	shell.Set(monitorKey, mon)
	shell.SetPrompt(cfg.Serial.Device + " > ")
	for _, cmd := range commands {
		shell.AddCmd(cmd)
	}

	if *evalOnly {
		if err := shell.Process(flag.Args()...); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	go func() {
		<-mon.Done()
		if err := mon.Err(); err != nil {
			glog.Errorf("connection lost: %v", err)
		}
	}()

	shell.Println("linmon: type help for commands")
	shell.Run()
}

func monitorFrom(c *ishell.Context) *monitor.Monitor {
	return c.Get(monitorKey).(*monitor.Monitor)
}

var commands = []*ishell.Cmd{
	{
		Name: "status",
		Help: "decoder identity, counters and link health",
		Func: func(c *ishell.Context) {
			st := monitorFrom(c).Status()
			if st.Identify != nil {
				c.Printf("firmware %s, %d baud, %s checksum\n",
					st.Identify.Version, st.Identify.Baud, st.Identify.Checksum)
				if st.Identify.Substituted {
					c.Println("warning: configured baud rate out of range, default in use")
				}
			} else {
				c.Println("firmware has not identified yet")
			}
			c.Printf("frames: %d valid, %d invalid\n",
				st.Counters.ValidFrames, st.Counters.InvalidFrames)
			c.Printf("firmware: %d frames, %d breaks, %d interrupts\n",
				st.Firmware.Frames, st.Firmware.Breaks, st.Firmware.Generation)
			c.Printf("link: %d blocks, %d bad, %d resyncs, %d lost, %d unparsed\n",
				st.Link.Blocks, st.Link.BadBlocks, st.Link.Resyncs, st.Link.SeqGaps, st.Link.BadReport)
		},
	},
	{
		Name:    "frames",
		Aliases: []string{"f"},
		Help:    "frames [n]: show the most recent frames",
		Func: func(c *ishell.Context) {
			n := 10
			if len(c.Args) > 0 {
				v, err := strconv.Atoi(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				n = v
			}
			for _, r := range monitorFrom(c).Recent(n) {
				mark := "ok "
				if !r.Valid {
					mark = "BAD"
				}
				c.Printf("%s %s id=%02X %s\n", r.At.Format("15:04:05.000"), mark, r.Frame.ID(), r.Frame)
			}
		},
	},
	{
		Name: "errors",
		Help: "error counts per kind, and kinds seen since the last call",
		Func: func(c *ishell.Context) {
			mon := monitorFrom(c)
			st := mon.Status()
			for _, k := range lin.AllErrors.Kinds() {
				c.Printf("%s %d\n", k, st.Counters.Errors[k])
			}
			if recent := mon.TakeErrors(); recent != 0 {
				c.Printf("since last: %s\n", recent)
			}
		},
	},
	{
		Name:    "position",
		Aliases: []string{"pos"},
		Help:    "last desk position",
		Func: func(c *ishell.Context) {
			pos, ok := monitorFrom(c).Position()
			if !ok {
				c.Println("no position frame received")
				return
			}
			age := time.Since(monitorFrom(c).Status().PositionUpdated).Round(time.Millisecond)
			c.Printf("%d (%s ago)\n", pos, age)
		},
	},
	{
		Name: "decode",
		Help: "decode <hex>: decode a captured report stream",
		Func: func(c *ishell.Context) {
			data, err := hex.DecodeString(strings.Join(c.Args, ""))
			if err != nil {
				c.Err(err)
				return
			}
			capture := protocol.DecodeCapture(data)
			for _, r := range capture.Reports {
				c.Println(describeReport(r))
			}
			c.Printf("%d blocks, %d bad, %d bytes trailing\n",
				capture.Stats.Blocks, capture.Stats.BadBlocks, capture.Trailing)
		},
	},
	{
		Name: "clear",
		Help: "reset counters and frame history",
		Func: func(c *ishell.Context) {
			monitorFrom(c).Clear()
			c.Println("OK")
		},
	},
}

func describeReport(r protocol.Report) string {
	switch r := r.(type) {
	case protocol.IdentifyReport:
		return fmt.Sprintf("identify %s %d baud %s", r.Version, r.Baud, r.Checksum)
	case protocol.FrameReport:
		mark := "ok"
		if !r.Frame.IsValid() {
			mark = "BAD"
		}
		return fmt.Sprintf("frame %s %s", mark, r.Frame)
	case protocol.ErrorsReport:
		return fmt.Sprintf("errors %s", r.Flags)
	case protocol.StatsReport:
		return fmt.Sprintf("stats frames=%d breaks=%d interrupts=%d",
			r.Stats.Frames, r.Stats.Breaks, r.Stats.Generation)
	case protocol.LogReport:
		return "log " + r.Text
	default:
		return fmt.Sprintf("report %d", r.MsgID())
	}
}
