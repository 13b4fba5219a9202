package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// ANSI color codes
const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	Dim     = "\033[2m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
)

var (
	useColors   = true
	quietMode   = false
	verboseMode = false
	logMessages []LogMessage
	logMutex    sync.RWMutex
	spinner     = []string{"-", "\\", "|", "/"}
)

// LogMessage represents a stored log message
type LogMessage struct {
	Message   string
	Color     string
	Timestamp time.Time
}

// SetColorMode enables or disables color output
func SetColorMode(enabled bool) {
	useColors = enabled && supportsColor()
}

// SetQuietMode enables or disables quiet mode
func SetQuietMode(enabled bool) {
	quietMode = enabled
}

// SetVerbose enables Debug output
func SetVerbose(enabled bool) {
	verboseMode = enabled
}

// supportsColor checks if the terminal supports color output
func supportsColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// colorize applies color to text if colors are enabled
func colorize(color, text string) string {
	if useColors {
		return color + text + Reset
	}
	return text
}

func emit(color, message string) {
	if quietMode {
		return
	}
	fmt.Println(colorize(color, message))
	storeMessage(message, color)
}

// Info prints an information message in cyan
func Info(message string) {
	emit(Cyan, message)
}

// Warning prints a warning message in yellow
func Warning(message string) {
	emit(Yellow, message)
}

// Error prints an error message in red
func Error(message string) {
	emit(Red, message)
}

// Success prints a success message in green
func Success(message string) {
	emit(Green, message)
}

// Highlight prints an important message in bold magenta
func Highlight(message string) {
	if quietMode {
		return
	}
	fmt.Println(colorize(Magenta+Bold, message))
	storeMessage(message, Magenta)
}

// Debug prints a dimmed message when verbose mode is on
func Debug(message string) {
	if !verboseMode {
		return
	}
	emit(Dim, message)
}

// Debugf formats and prints a debug message
func Debugf(format string, args ...interface{}) {
	if !verboseMode {
		return
	}
	Debug(fmt.Sprintf(format, args...))
}

// storeMessage stores a log message for later retrieval
func storeMessage(message, color string) {
	logMutex.Lock()
	defer logMutex.Unlock()
	logMessages = append(logMessages, LogMessage{
		Message:   message,
		Color:     color,
		Timestamp: time.Now(),
	})
}

// GetStoredMessages returns all stored log messages
func GetStoredMessages() []LogMessage {
	logMutex.RLock()
	defer logMutex.RUnlock()
	messages := make([]LogMessage, len(logMessages))
	copy(messages, logMessages)
	return messages
}

// ProgressBar renders byte progress through a file. A non-positive total
// shows a spinner instead of a bar.
type ProgressBar struct {
	current    int64
	total      int64
	barLength  int
	prefix     string
	suffix     string
	messages   []string
	lastHeight int
	spinFrame  int
	startTime  time.Time
	isRunning  bool
	stopChan   chan bool
	mu         sync.Mutex
}

// NewProgressBar creates a progress bar and starts rendering it
func NewProgressBar(total int64, prefix string) *ProgressBar {
	pb := &ProgressBar{
		total:     total,
		barLength: 30,
		prefix:    prefix,
		startTime: time.Now(),
		isRunning: true,
		stopChan:  make(chan bool, 1),
	}

	go pb.autoRender()

	return pb
}

// Update sets the number of bytes processed
func (pb *ProgressBar) Update(current int64) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.current = current
}

// SetSuffix sets the suffix text
func (pb *ProgressBar) SetSuffix(suffix string) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.suffix = suffix
}

// AddMessage adds a message to display below the progress bar
func (pb *ProgressBar) AddMessage(message, color string) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.messages = append(pb.messages, colorize(color, message))
}

// Stop renders the final state and stops the render goroutine
func (pb *ProgressBar) Stop() {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if !pb.isRunning {
		return
	}
	pb.renderInternal()
	pb.isRunning = false
	close(pb.stopChan)
}

// autoRender runs in a goroutine and renders the progress bar every 0.5 seconds
func (pb *ProgressBar) autoRender() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pb.mu.Lock()
			if !pb.isRunning {
				pb.mu.Unlock()
				return
			}
			pb.renderInternal()
			pb.mu.Unlock()
		case <-pb.stopChan:
			return
		}
	}
}

// text builds the progress line without colors or cursor movement
func (pb *ProgressBar) text() string {
	elapsed := time.Since(pb.startTime)
	runtime := fmt.Sprintf("%02d:%02d:%02d",
		int(elapsed.Hours()), int(elapsed.Minutes())%60, int(elapsed.Seconds())%60)

	var line string
	if pb.total > 0 {
		progress := float64(pb.current) / float64(pb.total)
		if progress > 1.0 {
			progress = 1.0
		}
		filled := int(float64(pb.barLength) * progress)
		bar := strings.Repeat("#", filled) + strings.Repeat(".", pb.barLength-filled)
		line = fmt.Sprintf("%s |%s| %d%% (%s/%s) | %s",
			pb.prefix, bar, int(progress*100), FormatBytes(pb.current), FormatBytes(pb.total), runtime)
	} else {
		line = fmt.Sprintf("%s %s %s | %s",
			pb.prefix, spinner[pb.spinFrame%len(spinner)], FormatBytes(pb.current), runtime)
		pb.spinFrame++
	}

	if pb.suffix != "" {
		line += " | " + pb.suffix
	}
	return line
}

// renderInternal redraws the bar in place, callers hold pb.mu
func (pb *ProgressBar) renderInternal() {
	if quietMode {
		return
	}

	if pb.lastHeight > 0 {
		fmt.Printf("\033[%dA", pb.lastHeight)
		fmt.Print("\033[J")
	}

	fmt.Println(colorize(Blue, pb.text()))
	for _, msg := range pb.messages {
		fmt.Println(msg)
	}
	pb.lastHeight = 1 + len(pb.messages)
}

// FormatBytes renders n with a binary unit suffix
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// SaveLogsToFile saves all stored messages to a file
func SaveLogsToFile(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer func() {
		if errClose := file.Close(); errClose != nil {
			Error(fmt.Sprintf("Error closing log file: %v", errClose))
		}
	}()

	messages := GetStoredMessages()
	for _, msg := range messages {
		_, errWrite := fmt.Fprintf(file, "[%s] %s\n",
			msg.Timestamp.Format("2006-01-02 15:04:05"),
			msg.Message)
		if errWrite != nil {
			return errWrite
		}
	}

	return nil
}
