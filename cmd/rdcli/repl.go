package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/xenking/redis"
	"github.com/xenking/redis/internal/resp"
)

const prompt = "rdcli> "

// runInteractive drives a REPL against an already-ready client, using raw
// terminal mode for arrow-key history navigation when stdin is a TTY and
// falling back to line-buffered input otherwise.
func runInteractive(client *redis.Client, addr string) {
	fmt.Printf("rdcli connected to %s\n", addr)
	fmt.Println("Type a command (e.g. GET foo), 'help', or 'quit'.")

	history := newCommandHistory(100)

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		runFallback(client, history)
		return
	}
	defer term.Restore(fd, oldState)

	reader := bufio.NewReader(os.Stdin)
	for {
		line, err := readLineWithHistory(reader, history)
		if err != nil {
			if err == io.EOF {
				fmt.Print("\r\n")
				return
			}
			fmt.Fprintf(os.Stderr, "\r\nreading input: %v\r\n", err)
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			fmt.Print("\r\n")
			return
		}
		if line == "help" {
			fmt.Print("\r\n" + helpText() + "\r\n")
			continue
		}
		history.Add(line)
		runOne(client, line, false)
	}
}

func runFallback(client *redis.Client, history *commandHistory) {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print(prompt)
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}
		if line == "help" {
			fmt.Print(helpText())
			continue
		}
		history.Add(line)
		runOne(client, line, false)
	}
}

// readLineWithHistory reads one line of raw-mode terminal input,
// supporting Up/Down for history recall and Backspace/Enter/Ctrl-C/Ctrl-D
// (arrow keys only; this client has no need for cursor-position editing
// mid-line).
func readLineWithHistory(reader *bufio.Reader, history *commandHistory) (string, error) {
	var input strings.Builder
	fmt.Print(prompt)

	redraw := func(s string) {
		fmt.Print("\r\033[K" + prompt + s)
	}

	for {
		b, err := reader.ReadByte()
		if err != nil {
			return "", err
		}
		switch b {
		case '\r', '\n':
			return input.String(), nil
		case 3: // Ctrl-C
			return "", io.EOF
		case 4: // Ctrl-D
			if input.Len() == 0 {
				return "", io.EOF
			}
		case 127, 8: // Backspace
			s := input.String()
			if len(s) > 0 {
				input.Reset()
				input.WriteString(s[:len(s)-1])
				redraw(input.String())
			}
		case 27: // ESC, possibly an arrow-key sequence
			next, err := reader.ReadByte()
			if err != nil || next != '[' {
				continue
			}
			third, err := reader.ReadByte()
			if err != nil {
				continue
			}
			switch third {
			case 'A': // Up
				if prev := history.Previous(); prev != "" || history.Len() > 0 {
					input.Reset()
					input.WriteString(prev)
					redraw(prev)
				}
			case 'B': // Down
				next := history.Next()
				input.Reset()
				input.WriteString(next)
				redraw(next)
			}
		default:
			input.WriteByte(b)
			fmt.Printf("%c", b)
		}
	}
}

func runBatchLine(client *redis.Client, line string, raw bool) error {
	return runOne(client, line, raw)
}

func runPipeMode(client *redis.Client, raw bool) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := runOne(client, line, raw); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func runOne(client *redis.Client, line string, raw bool) error {
	args := parseLine(line)
	if len(args) == 0 {
		return nil
	}
	name := args[0]
	rest := make([]interface{}, len(args)-1)
	for i, a := range args[1:] {
		rest[i] = a
	}
	r, err := client.Do(name, rest...)
	if err != nil {
		fmt.Print("\r(error) " + err.Error() + "\r\n")
		return nil
	}
	if raw {
		fmt.Println(r.String())
		return nil
	}
	fmt.Print("\r" + formatReply(r) + "\r\n")
	return nil
}

// parseLine splits a command line into arguments, honoring double-quoted
// substrings (so `SET key "two words"` sends one argument for the value).
func parseLine(s string) []string {
	var out []string
	var cur strings.Builder
	inQuotes := false
	hasCur := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
			hasCur = true
		case c == ' ' && !inQuotes:
			if hasCur {
				out = append(out, cur.String())
				cur.Reset()
				hasCur = false
			}
		default:
			cur.WriteByte(c)
			hasCur = true
		}
	}
	if hasCur {
		out = append(out, cur.String())
	}
	return out
}

func formatReply(r resp.Reply) string {
	switch r.Type {
	case resp.TypeArray:
		if r.Array == nil {
			return "(nil)"
		}
		if len(r.Array) == 0 {
			return "(empty array)"
		}
		var b strings.Builder
		for i, v := range r.Array {
			b.WriteString(strconv.Itoa(i + 1))
			b.WriteString(") ")
			b.WriteString(formatReply(v))
			if i != len(r.Array)-1 {
				b.WriteString("\r\n")
			}
		}
		return b.String()
	default:
		return r.String()
	}
}

func helpText() string {
	return "Commands are sent verbatim to the server, e.g.:\r\n" +
		"  GET foo\r\n  SET foo bar\r\n  HSET user:1 name ava\r\n" +
		"  SUBSCRIBE news\r\nquit/exit leaves the client.\r\n"
}
