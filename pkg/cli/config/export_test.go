package config

import "time"

// NewSlackForTest creates a Slack config for testing purposes
func NewSlackForTest(botToken, signingSecret string) *Slack {
	return &Slack{
		botToken:      botToken,
		signingSecret: signingSecret,
	}
}

// NewAuthForTest creates an Auth config for testing purposes
func NewAuthForTest(jwtSecret string, noAuthUID int64) *Auth {
	return &Auth{
		jwtSecret: jwtSecret,
		skew:      30 * time.Second,
		noAuthUID: noAuthUID,
	}
}

// NewAgentForTest creates an Agent config for testing purposes
func NewAgentForTest(url string, timeout time.Duration) *Agent {
	return &Agent{
		url:            url,
		analyzeTimeout: timeout,
		executeTimeout: timeout,
		chatTimeout:    timeout,
	}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, databaseURL, sqlitePath, projectID string) *Repository {
	return &Repository{
		backend:     backend,
		databaseURL: databaseURL,
		sqlitePath:  sqlitePath,
		projectID:   projectID,
	}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{
		level:  level,
		format: format,
		output: output,
	}
}

var ParseLogLevel = parseLogLevel
