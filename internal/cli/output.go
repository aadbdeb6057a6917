package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/mcoot/arenasession/internal/api/response"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.Health:
		fmt.Fprintf(o.w, "Status: %s\nRole: %s\nPeers: %d\n", v.Status, v.Role, v.Peers)
	case response.Session:
		o.printSessions([]response.Session{v})
	case []response.Session:
		o.printSessions(v)
	case response.Phase:
		o.printPhase(v)
	case response.Loading:
		o.printLoading(v)
	case response.Lobby:
		o.printLobby(v)
	case response.StartGame:
		fmt.Fprintf(o.w, "Lobby closing, match loads in %s\n", v.CloseDelay)
	case response.Avatars:
		o.printAvatars(v)
	case response.Account:
		fmt.Fprintf(o.w, "Account: %s\nIdentity: %s\n", v.Username, v.Identity)
	case response.PostGame:
		fmt.Fprintf(o.w, "Outcome: %s\n", v.WinState)
	case response.Round:
		if v.GameOver {
			fmt.Fprintf(o.w, "Round over: %s\n", v.WinState)
		} else {
			fmt.Fprintf(o.w, "Round continues, %d alive\n", v.Alive)
		}
	case joinEvent:
		o.printJoinEvent(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) table() *tabwriter.Writer {
	return tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
}

func (o *Output) printSessions(sessions []response.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(o.w, "No sessions")
		return
	}
	tw := o.table()
	fmt.Fprintln(tw, "#\tNAME\tCLIENT\tCONNECTED\tALIVE\tSPAWNED\tIDENTITY")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%t\t%t\t%t\t%s\n",
			s.PlayerNumber, s.Name, s.ClientID, s.Connected, s.Alive, s.HasCharacterSpawned, s.Identity)
	}
	_ = tw.Flush()
}

func (o *Output) printPhase(p response.Phase) {
	phase := "none"
	if p.Phase != nil {
		phase = *p.Phase
	}
	fmt.Fprintf(o.w, "Role: %s\nPhase: %s\nScene: %s\n", p.Role, phase, p.Scene)
	if p.Loading {
		fmt.Fprintln(o.w, "Loading: yes")
	}
}

func (o *Output) printLoading(l response.Loading) {
	fmt.Fprintf(o.w, "Scene: %s (loading: %t, all loaded: %t)\n", l.Scene, l.Loading, l.AllLoaded)
	tw := o.table()
	fmt.Fprintln(tw, "CLIENT\tPROGRESS")
	for _, c := range l.Clients {
		fmt.Fprintf(tw, "%d\t%3.0f%%\n", c.ClientID, c.Progress*100)
	}
	_ = tw.Flush()
}

func (o *Output) printLobby(l response.Lobby) {
	if !l.Active {
		fmt.Fprintln(o.w, "Lobby phase is not active")
	} else {
		state := "open"
		if l.Closing {
			state = "closing"
		}
		fmt.Fprintf(o.w, "Lobby: %s\n", state)
	}
	if m := l.Matchmaking; m != nil {
		fmt.Fprintf(o.w, "Matchmaking: %s (%s), max %d players, locked: %t\n", m.Name, m.Code, m.MaxPlayers, m.Locked)
		if m.JoinCode != "" {
			fmt.Fprintf(o.w, "Relay join code: %s\n", m.JoinCode)
		}
	}
}

func (o *Output) printAvatars(a response.Avatars) {
	if a.Phase != nil {
		fmt.Fprintf(o.w, "Phase: %s\n", *a.Phase)
	}
	names := make(map[string]string, len(a.Appearances))
	for _, ap := range a.Appearances {
		names[ap.ID] = ap.Name
	}

	fmt.Fprintf(o.w, "Spawned (%d):\n", len(a.Spawned))
	tw := o.table()
	for _, s := range a.Spawned {
		fmt.Fprintf(tw, "  %d\t%s\t%s\talive=%t\t(%.2f, %.2f, %.2f)\n",
			s.ClientID, s.Name, names[s.AppearanceID], s.Alive, s.Position[0], s.Position[1], s.Position[2])
	}
	_ = tw.Flush()
}

func (o *Output) printJoinEvent(e joinEvent) {
	switch {
	case e.Client != 0:
		fmt.Fprintf(o.w, "[%s] client %d\n", e.Kind, e.Client)
	case e.Scene != "":
		fmt.Fprintf(o.w, "[%s] %s\n", e.Kind, e.Scene)
	case e.Field != "":
		fmt.Fprintf(o.w, "[%s] %s (owner %d) = %v\n", e.Kind, e.Field, e.Owner, e.Value)
	default:
		fmt.Fprintf(o.w, "[%s]\n", e.Kind)
	}
}
