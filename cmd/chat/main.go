package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"time"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "Smart Money server URL")
	flag.Parse()

	jar, _ := cookiejar.New(nil)
	client := &http.Client{Jar: jar, Timeout: 65 * time.Second}

	fmt.Println("Smart Money CLI Chat")
	fmt.Printf("Server: %s\n", *server)
	fmt.Println("Type 'exit' or 'quit' to leave.")
	fmt.Println("Commands: /profile, /status")
	fmt.Println("---")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		switch input {
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		case "/profile":
			fetchProfile(client, *server)
		case "/status":
			fetchStatus(client, *server)
		default:
			ask(client, *server, input)
		}
	}
}

func ask(client *http.Client, server, question string) {
	body, _ := json.Marshal(map[string]string{"question": question})
	resp, err := client.Post(server+"/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		printError("Request failed: %v", err)
		return
	}
	defer resp.Body.Close()

	var out struct {
		Answer string `json:"answer"`
		Error  string `json:"error"`
	}
	data, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(data, &out); err != nil {
		printError("Server error (%d): %s", resp.StatusCode, string(data))
		return
	}
	if resp.StatusCode != http.StatusOK {
		printError("%s", out.Error)
		return
	}
	fmt.Println(out.Answer)
}

func fetchProfile(client *http.Client, server string) {
	resp, err := client.Get(server + "/api/session")
	if err != nil {
		printError("Failed to fetch profile: %v", err)
		return
	}
	defer resp.Body.Close()

	var p *struct {
		Hourly       float64 `json:"hourly"`
		HoursPerWeek int     `json:"hours_per_week"`
		Weekly       float64 `json:"weekly"`
		Monthly      float64 `json:"monthly"`
		Annual       float64 `json:"annual"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		printError("Failed to parse profile: %v", err)
		return
	}
	if p == nil {
		fmt.Println("No salary on file yet. Try \"I earn $20 per hour and work 40 hours per week\".")
		return
	}
	fmt.Printf("$%.2f/hour x %d hours/week\n", p.Hourly, p.HoursPerWeek)
	fmt.Printf("  Weekly:  $%.2f\n  Monthly: $%.2f\n  Annual:  $%.2f\n", p.Weekly, p.Monthly, p.Annual)
}

func fetchStatus(client *http.Client, server string) {
	resp, err := client.Get(server + "/api/gateways")
	if err != nil {
		printError("Failed to fetch status: %v", err)
		return
	}
	defer resp.Body.Close()

	var statuses []struct {
		Platform  string `json:"platform"`
		Connected bool   `json:"connected"`
		Error     string `json:"error,omitempty"`
		Details   string `json:"details,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&statuses); err != nil {
		printError("Failed to parse status: %v", err)
		return
	}
	if len(statuses) == 0 {
		fmt.Println("No chat gateways enabled.")
		return
	}
	fmt.Println("Gateway Status:")
	for _, s := range statuses {
		icon := "\033[31m✗\033[0m"
		if s.Connected {
			icon = "\033[32m✓\033[0m"
		}
		fmt.Printf("  %s %s", icon, s.Platform)
		if s.Details != "" {
			fmt.Printf(" (%s)", s.Details)
		}
		if s.Error != "" {
			fmt.Printf(" \033[31m%s\033[0m", s.Error)
		}
		fmt.Println()
	}
}

func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "\033[31m"+format+"\033[0m\n", args...)
}
