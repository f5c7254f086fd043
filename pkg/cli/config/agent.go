package config

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gaprio/gaprio/pkg/service/agent"
	"github.com/gaprio/gaprio/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Agent holds CLI flags for the reasoning service client
type Agent struct {
	url            string
	analyzeTimeout time.Duration
	executeTimeout time.Duration
	chatTimeout    time.Duration
}

func (x *Agent) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "agent-url",
			Usage:       "Base URL of the reasoning service",
			Category:    "Agent",
			Value:       agent.DefaultBaseURL,
			Sources:     cli.EnvVars("GAPRIO_AGENT_URL"),
			Destination: &x.url,
		},
		&cli.DurationFlag{
			Name:        "agent-analyze-timeout",
			Usage:       "Timeout of context analysis requests",
			Category:    "Agent",
			Value:       agent.DefaultAnalyzeTimeout,
			Sources:     cli.EnvVars("GAPRIO_AGENT_ANALYZE_TIMEOUT"),
			Destination: &x.analyzeTimeout,
		},
		&cli.DurationFlag{
			Name:        "agent-execute-timeout",
			Usage:       "Timeout of action execution requests",
			Category:    "Agent",
			Value:       agent.DefaultExecuteTimeout,
			Sources:     cli.EnvVars("GAPRIO_AGENT_EXECUTE_TIMEOUT"),
			Destination: &x.executeTimeout,
		},
		&cli.DurationFlag{
			Name:        "agent-chat-timeout",
			Usage:       "Timeout of chat requests",
			Category:    "Agent",
			Value:       agent.DefaultChatTimeout,
			Sources:     cli.EnvVars("GAPRIO_AGENT_CHAT_TIMEOUT"),
			Destination: &x.chatTimeout,
		},
	}
}

func (x Agent) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("url", x.url),
		slog.Duration("analyze-timeout", x.analyzeTimeout),
		slog.Duration("execute-timeout", x.executeTimeout),
		slog.Duration("chat-timeout", x.chatTimeout),
	)
}

// Configure creates the reasoning service client. Values in the [agent] section of the
// config file take precedence over flags. An empty URL disables the agent.
func (x *Agent) Configure(override *AgentConfig) (agent.Service, error) {
	url := x.url
	analyze, execute, chat := x.analyzeTimeout, x.executeTimeout, x.chatTimeout

	if override != nil {
		if override.URL != "" {
			url = override.URL
		}
		for _, o := range []struct {
			field string
			value string
			dst   *time.Duration
		}{
			{"agent.analyze_timeout", override.AnalyzeTimeout, &analyze},
			{"agent.execute_timeout", override.ExecuteTimeout, &execute},
			{"agent.chat_timeout", override.ChatTimeout, &chat},
		} {
			d, err := parsePositiveDuration(o.field, o.value)
			if err != nil {
				return nil, err
			}
			if d > 0 {
				*o.dst = d
			}
		}
	}

	if url == "" {
		logging.Default().Warn("Agent URL is not set, analysis and execution are disabled")
		return nil, nil
	}

	svc, err := agent.New(url,
		agent.WithHTTPClient(&http.Client{}),
		agent.WithAnalyzeTimeout(analyze),
		agent.WithExecuteTimeout(execute),
		agent.WithChatTimeout(chat),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create agent client", goerr.V("url", url))
	}

	return svc, nil
}
