package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// resetMessages clears the store for one test and restores it afterwards
func resetMessages(t *testing.T) {
	logMutex.Lock()
	original := logMessages
	logMessages = nil
	logMutex.Unlock()

	originalQuiet, originalVerbose := quietMode, verboseMode
	t.Cleanup(func() {
		logMutex.Lock()
		logMessages = original
		logMutex.Unlock()
		quietMode, verboseMode = originalQuiet, originalVerbose
	})
}

func TestSetColorMode(t *testing.T) {
	originalUseColors := useColors
	defer func() { useColors = originalUseColors }()

	SetColorMode(false)
	if useColors {
		t.Error("Expected useColors to be false when SetColorMode(false) is called")
	}
}

func TestSetQuietAndVerbose(t *testing.T) {
	resetMessages(t)

	SetQuietMode(true)
	if !quietMode {
		t.Error("Expected quietMode to be true")
	}
	SetQuietMode(false)
	if quietMode {
		t.Error("Expected quietMode to be false")
	}

	SetVerbose(true)
	if !verboseMode {
		t.Error("Expected verboseMode to be true")
	}
}

func TestSupportsColor(t *testing.T) {
	originalNoColor, hadNoColor := os.LookupEnv("NO_COLOR")
	originalForceColor, hadForceColor := os.LookupEnv("FORCE_COLOR")
	defer func() {
		if hadNoColor {
			os.Setenv("NO_COLOR", originalNoColor)
		} else {
			os.Unsetenv("NO_COLOR")
		}
		if hadForceColor {
			os.Setenv("FORCE_COLOR", originalForceColor)
		} else {
			os.Unsetenv("FORCE_COLOR")
		}
	}()

	os.Setenv("NO_COLOR", "1")
	if supportsColor() {
		t.Error("Expected supportsColor to return false when NO_COLOR is set")
	}

	os.Unsetenv("NO_COLOR")
	os.Setenv("FORCE_COLOR", "1")
	if !supportsColor() {
		t.Error("Expected supportsColor to return true when FORCE_COLOR is set")
	}
}

func TestColorize(t *testing.T) {
	originalUseColors := useColors
	defer func() { useColors = originalUseColors }()

	tests := []struct {
		name      string
		useColors bool
		color     string
		text      string
		want      string
	}{
		{"with colors enabled", true, Red, "bad cluster", Red + "bad cluster" + Reset},
		{"with colors disabled", false, Red, "bad cluster", "bad cluster"},
		{"empty text with colors", true, Blue, "", Blue + Reset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useColors = tt.useColors
			if got := colorize(tt.color, tt.text); got != tt.want {
				t.Errorf("colorize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetStoredMessagesCopy(t *testing.T) {
	resetMessages(t)
	storeMessage("msg1", Red)
	storeMessage("msg2", Blue)

	messages := GetStoredMessages()
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}

	messages[0].Message = "modified"
	if GetStoredMessages()[0].Message == "modified" {
		t.Error("GetStoredMessages should return a copy, not the original slice")
	}
}

func TestLoggingFunctions(t *testing.T) {
	resetMessages(t)
	quietMode = false
	verboseMode = false

	Info("test info")
	Warning("test warning")
	Error("test error")
	Success("test success")
	Highlight("test highlight")
	Debug("hidden debug")

	expected := []struct {
		text  string
		color string
	}{
		{"test info", Cyan},
		{"test warning", Yellow},
		{"test error", Red},
		{"test success", Green},
		{"test highlight", Magenta},
	}

	messages := GetStoredMessages()
	if len(messages) != len(expected) {
		t.Fatalf("Expected %d stored messages, got %d", len(expected), len(messages))
	}
	for i, want := range expected {
		if messages[i].Message != want.text || messages[i].Color != want.color {
			t.Errorf("Message %d = %q/%q, want %q/%q", i, messages[i].Message, messages[i].Color, want.text, want.color)
		}
	}

	verboseMode = true
	Debugf("cluster %d at %d", 3, 4096)
	messages = GetStoredMessages()
	if last := messages[len(messages)-1]; last.Message != "cluster 3 at 4096" || last.Color != Dim {
		t.Errorf("Expected debug message to be stored, got %+v", last)
	}
}

func TestLoggingFunctionsQuietMode(t *testing.T) {
	resetMessages(t)
	quietMode = true
	verboseMode = true

	Info("test info")
	Warning("test warning")
	Error("test error")
	Success("test success")
	Highlight("test highlight")
	Debug("test debug")

	if messages := GetStoredMessages(); len(messages) != 0 {
		t.Errorf("Expected 0 stored messages in quiet mode, got %d", len(messages))
	}
}

func TestProgressBarText(t *testing.T) {
	pb := NewProgressBar(2048, "Remuxing")
	defer pb.Stop()

	pb.Update(1024)
	pb.SetSuffix("cluster 2")

	pb.mu.Lock()
	text := pb.text()
	pb.mu.Unlock()

	for _, want := range []string{"Remuxing", "50%", "1.0 KiB/2.0 KiB", "cluster 2"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in progress text %q", want, text)
		}
	}
}

func TestProgressBarUnknownTotal(t *testing.T) {
	pb := NewProgressBar(0, "Scanning")
	defer pb.Stop()
	pb.Update(10)

	pb.mu.Lock()
	text := pb.text()
	pb.mu.Unlock()

	if strings.Contains(text, "%") || !strings.Contains(text, "10 B") {
		t.Errorf("Expected a spinner line, got %q", text)
	}
}

func TestProgressBarThreadSafety(t *testing.T) {
	resetMessages(t)
	quietMode = true

	pb := NewProgressBar(1000, "Test")
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(val int) {
			defer wg.Done()
			pb.Update(int64(val * 10))
			pb.SetSuffix(fmt.Sprintf("suffix-%d", val))
			pb.AddMessage(fmt.Sprintf("message-%d", val), Cyan)
		}(i)
	}
	wg.Wait()
	pb.Stop()
	pb.Stop()

	if len(pb.messages) != 10 {
		t.Errorf("Expected 10 messages, got %d", len(pb.messages))
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{5 << 20, "5.0 MiB"},
		{3 << 30, "3.0 GiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSaveLogsToFile(t *testing.T) {
	resetMessages(t)
	logMutex.Lock()
	logMessages = []LogMessage{
		{Message: "Info message", Color: Cyan, Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)},
		{Message: "Error message", Color: Red, Timestamp: time.Date(2024, 1, 1, 12, 1, 0, 0, time.UTC)},
	}
	logMutex.Unlock()

	path := filepath.Join(t.TempDir(), "mkvtree.log")
	if err := SaveLogsToFile(path); err != nil {
		t.Fatalf("SaveLogsToFile failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	text := string(content)
	for _, want := range []string{"Info message", "Error message", "[2024-01-01 12:00:00]"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected log file to contain %q", want)
		}
	}
}

func TestSaveLogsToFile_FileCreationError(t *testing.T) {
	if err := SaveLogsToFile("/invalid/path/that/does/not/exist/log.txt"); err == nil {
		t.Error("Expected error when saving to invalid path")
	}
}
