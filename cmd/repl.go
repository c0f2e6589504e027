package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/xhad/pagechat/internal/models"
	"github.com/xhad/pagechat/pkg/llm"
	"github.com/xhad/pagechat/pkg/scraper"
)

var replStream bool

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Chat about web pages from the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		r := &repl{stream: replStream}
		p, err := initPipeline(ctx, cfg, r.onStage)
		if err != nil {
			return err
		}
		defer p.Close()

		r.pipeline = p
		r.forwarder = llm.NewForwarder(p.engine, p.slot)
		return r.run(ctx, os.Stdin)
	},
}

func init() {
	replCmd.Flags().BoolVar(&replStream, "stream", true, "stream responses as they are generated")
	rootCmd.AddCommand(replCmd)
}

type action int

const (
	actionNone action = iota
	actionExit
	actionHelp
	actionScrape
	actionChat
	actionAsk
	actionStatus
	actionClear
	actionHistory
)

type replCommand struct {
	action action
	url    string
	prompt string
}

var urlRegex = regexp.MustCompile(`https?://[^\s]+`)

// parseInput maps a line of input to a command. A line carrying a URL
// scrapes it; any text around the URL is asked afterwards.
func parseInput(line string) replCommand {
	line = strings.TrimSpace(line)
	if line == "" {
		return replCommand{action: actionNone}
	}

	switch strings.ToLower(line) {
	case "exit", "quit":
		return replCommand{action: actionExit}
	case "/help":
		return replCommand{action: actionHelp}
	case "/status":
		return replCommand{action: actionStatus}
	case "/clear":
		return replCommand{action: actionClear}
	case "/history":
		return replCommand{action: actionHistory}
	}

	if rest, ok := strings.CutPrefix(line, "/ask "); ok {
		return replCommand{action: actionAsk, prompt: strings.TrimSpace(rest)}
	}

	if loc := urlRegex.FindStringIndex(line); loc != nil {
		rest := strings.TrimSpace(strings.TrimSpace(line[:loc[0]]) + " " + strings.TrimSpace(line[loc[1]:]))
		return replCommand{action: actionScrape, url: line[loc[0]:loc[1]], prompt: rest}
	}

	return replCommand{action: actionChat, prompt: line}
}

type repl struct {
	pipeline  *pipeline
	forwarder *llm.Forwarder
	stream    bool

	mu      sync.Mutex
	spinner *progressbar.ProgressBar
}

var (
	userPrompt      = color.New(color.FgGreen).PrintfFunc()
	assistantPrompt = color.New(color.FgCyan).PrintfFunc()
)

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

var stageDescriptions = map[string]string{
	scraper.StageWaiting:    " Waiting for browser slot...",
	scraper.StageRendering:  " Rendering page...",
	scraper.StageExtracting: " Extracting text...",
}

func (r *repl) onStage(url, stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.spinner != nil {
		r.spinner.Describe(color.CyanString(stageDescriptions[stage]))
	}
}

// spin shows a spinner until fn returns.
func (r *repl) spin(description string, fn func()) {
	bar := getSpinner(description)
	r.mu.Lock()
	r.spinner = bar
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				r.mu.Lock()
				bar.Add(1)
				r.mu.Unlock()
			}
		}
	}()

	fn()
	close(done)

	r.mu.Lock()
	bar.Finish()
	r.spinner = nil
	r.mu.Unlock()
	fmt.Print("\r")
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	color.Cyan("\nChat with any web page. Paste a URL to scrape it, /help for commands, 'exit' to quit.")

	scanner := bufio.NewScanner(in)
	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		cmd := parseInput(scanner.Text())
		switch cmd.action {
		case actionNone:
		case actionExit:
			return nil
		case actionHelp:
			printHelp()
		case actionStatus:
			r.printStatus()
		case actionClear:
			r.pipeline.slot.Clear()
			color.Green("✓ Scraped content cleared")
		case actionHistory:
			r.printHistory(ctx)
		case actionScrape:
			if !r.scrape(ctx, cmd.url) || cmd.prompt == "" {
				continue
			}
			r.chat(ctx, models.ChatRequest{UserPrompt: cmd.prompt})
		case actionAsk:
			off := false
			r.chat(ctx, models.ChatRequest{UserPrompt: cmd.prompt, UseScrapedContent: &off})
		case actionChat:
			r.chat(ctx, models.ChatRequest{UserPrompt: cmd.prompt})
		}
	}
}

func printHelp() {
	color.Cyan("  <url> [question]  scrape a page, optionally asking about it")
	color.Cyan("  <question>        ask about the scraped page")
	color.Cyan("  /ask <question>   ask without the scraped page")
	color.Cyan("  /status           show what is loaded")
	color.Cyan("  /clear            forget the scraped page")
	color.Cyan("  /history          list recent scrapes")
	color.Cyan("  exit              quit")
}

func (r *repl) scrape(ctx context.Context, url string) bool {
	color.Blue("\nDetected URL: %s", url)

	var (
		text string
		err  error
	)
	r.spin(" Scraping page...", func() {
		text, err = r.pipeline.scraper.Fetch(ctx, url)
	})
	if err != nil {
		color.Red("%v\n", err)
		return false
	}

	doc := r.pipeline.slot.Store(url, text)
	if r.pipeline.history != nil {
		if err := r.pipeline.history.Record(ctx, doc); err != nil {
			color.Yellow("Could not record history: %v", err)
		}
	}
	color.Green("✓ Scraped %d characters from %s\n", doc.Length, doc.URL)
	fmt.Println(doc.Preview)
	return true
}

func (r *repl) chat(ctx context.Context, req models.ChatRequest) {
	if !r.stream {
		var resp models.ChatResponse
		r.spin(" Generating response...", func() {
			resp = r.forwarder.Ask(ctx, req)
		})
		printResponse(resp)
		return
	}

	fmt.Print("\n")
	assistantPrompt("Assistant: ")
	streamed := false
	resp := r.forwarder.Stream(ctx, req, func(chunk string) error {
		streamed = true
		fmt.Print(chunk)
		return nil
	})
	if streamed && resp.Status == models.ChatOK {
		fmt.Print("\n")
		return
	}
	printResponse(resp)
}

func printResponse(resp models.ChatResponse) {
	switch resp.Status {
	case models.ChatError:
		color.Red("%s\n", resp.Response)
	case models.ChatNoContent:
		color.Yellow("%s\n", resp.Response)
	default:
		assistantPrompt("%s\n", resp.Response)
	}
}

func (r *repl) printStatus() {
	status := r.pipeline.slot.Status()
	if !status.HasContent {
		color.Yellow("Nothing scraped yet")
		return
	}
	color.Cyan("Loaded %s (%d characters)", status.URL, status.ContentLength)
}

func (r *repl) printHistory(ctx context.Context) {
	if r.pipeline.history == nil {
		color.Yellow("History is disabled; set database.url to enable it")
		return
	}
	entries, err := r.pipeline.history.Recent(ctx, 10)
	if err != nil {
		color.Red("Error reading history: %v", err)
		return
	}
	for _, e := range entries {
		fmt.Printf("%s  %6d  %s\n", e.ScrapedAt.Local().Format(time.DateTime), e.Length, e.URL)
	}
}
