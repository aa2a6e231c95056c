package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionId string `json:"session_id,omitempty"`
	AgentType string `json:"agent_type,omitempty"`
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type chatResponse struct {
	Response  string                 `json:"response"`
	SessionId string                 `json:"session_id"`
	AgentUsed string                 `json:"agent_used"`
	Metadata  map[string]interface{} `json:"metadata"`
}

type client struct {
	baseURL   string
	http      *http.Client
	sessionId string
	agent     string
	verbose   bool
}

func main() {
	baseURL := flag.String("url", "http://localhost:3000/api/v1", "API base URL")
	agent := flag.String("agent", "", "pin every turn to an agent: financial, sql or web")
	verbose := flag.Bool("v", false, "print response metadata")
	timeout := flag.Duration("timeout", 2*time.Minute, "per-request timeout")
	flag.Parse()

	c := &client{
		baseURL: strings.TrimRight(*baseURL, "/"),
		http:    &http.Client{Timeout: *timeout},
		agent:   *agent,
		verbose: *verbose,
	}

	// one-shot mode
	if flag.NArg() > 0 {
		if err := c.send(strings.Join(flag.Args(), " ")); err != nil {
			color.Red("Error: %v", err)
			os.Exit(1)
		}
		return
	}

	color.Cyan("Financial assistant. /help for commands, /quit to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		color.New(color.FgGreen, color.Bold).Print("\nyou> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if quit := c.command(line); quit {
			return
		}
	}
}

// command handles client-side slash commands. Anything else, including agent
// directives like "/sql ...", goes to the server.
func (c *client) command(line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		color.Cyan("Bye!")
		return true
	case "/help":
		fmt.Println("  /agent <financial|sql|web|auto>  pin or unpin the agent")
		fmt.Println("  /session                         show the current session id")
		fmt.Println("  /reset                           start a new session")
		fmt.Println("  /quit                            exit")
		fmt.Println("  /financial|/sql|/web <question>  route one question")
	case "/agent":
		if len(fields) < 2 || fields[1] == "auto" {
			c.agent = ""
			color.Yellow("Agent: automatic routing")
		} else {
			c.agent = strings.ToLower(fields[1])
			color.Yellow("Agent: %s", c.agent)
		}
	case "/session":
		if c.sessionId == "" {
			color.Yellow("No session yet")
		} else {
			color.Yellow("Session: %s", c.sessionId)
		}
	case "/reset":
		if c.sessionId != "" {
			if err := c.deleteSession(); err != nil {
				color.Red("Error: %v", err)
			}
		}
		c.sessionId = ""
		color.Yellow("Started a new session")
	default:
		if err := c.send(line); err != nil {
			color.Red("Error: %v", err)
		}
	}
	return false
}

func (c *client) send(message string) error {
	body, _ := json.Marshal(chatRequest{Message: message, SessionId: c.sessionId, AgentType: c.agent})

	start := time.Now()
	resp, err := c.http.Post(c.baseURL+"/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var res chatResponse
	if err := decode(resp, &res); err != nil {
		return err
	}
	c.sessionId = res.SessionId

	color.New(color.FgMagenta, color.Bold).Printf("\n[%s] ", res.AgentUsed)
	fmt.Println(res.Response)
	color.New(color.Faint).Printf("(%.1fs)\n", time.Since(start).Seconds())

	if c.verbose && len(res.Metadata) > 0 {
		meta, _ := json.MarshalIndent(res.Metadata, "", "  ")
		color.New(color.Faint).Println(string(meta))
	}
	return nil
}

func (c *client) deleteSession() error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+"/chat/sessions/"+c.sessionId, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, nil)
}

func decode(resp *http.Response, out interface{}) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("unexpected response (%s): %s", resp.Status, strings.TrimSpace(string(raw)))
	}
	if !env.Success {
		return fmt.Errorf("%s: %s", resp.Status, env.Message)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}
