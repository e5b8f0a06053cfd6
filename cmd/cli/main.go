package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/yt-download-go/internal/domain"
)

var (
	serverURL   string
	noAutoStart bool
	rootCmd     = &cobra.Command{
		Use:   "ytdl",
		Short: "ytdl - client for the YouTube download server",
		Long:  `A command-line client for listing resolutions, starting downloads and following their progress.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:3000", "Server URL")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")

	rootCmd.AddCommand(resolutionsCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(statusCmd)
}

// ensureServer checks if server is running and starts it if needed (unless --no-auto-start)
func ensureServer() {
	if noAutoStart {
		return
	}
	if err := ensureServerRunning(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

var resolutionsCmd = &cobra.Command{
	Use:   "resolutions [url]",
	Short: "List the resolutions available for a video",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		resp, err := http.Get(serverURL + "/youtube/resolutions?url=" + url.QueryEscape(args[0]))
		if err != nil {
			fail(err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fail(responseError(resp.StatusCode, body))
		}

		var descriptors []map[string]interface{}
		if err := json.Unmarshal(body, &descriptors); err != nil {
			fail(fmt.Errorf("unexpected response: %w", err))
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FORMAT\tHEIGHT\tEXT")
		for _, d := range descriptors {
			id, height, ext := descriptorRow(d)
			fmt.Fprintf(w, "%s\t%s\t%s\n", id, height, ext)
		}
		w.Flush()
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download [url]",
	Short: "Download a video and follow its progress",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		resolution, _ := cmd.Flags().GetInt("resolution")
		detach, _ := cmd.Flags().GetBool("detach")

		data, _ := json.Marshal(map[string]interface{}{
			"url":        args[0],
			"resolution": resolution,
		})
		resp, err := http.Post(serverURL+"/youtube/downloads", "application/json", bytes.NewBuffer(data))
		if err != nil {
			fail(err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusAccepted {
			fail(responseError(resp.StatusCode, body))
		}

		var started struct {
			SessionID string `json:"session_id"`
		}
		json.Unmarshal(body, &started)
		fmt.Printf("Session: %s\n", started.SessionID)

		if detach {
			return
		}

		if err := followProgress(serverURL, started.SessionID, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: progress stream: %v\n", err)
		}

		download, err := waitForStatus(started.SessionID)
		if err != nil {
			fail(err)
		}
		printStatus(download)
		if download.Status == domain.DownloadFailed {
			os.Exit(1)
		}
	},
}

var progressCmd = &cobra.Command{
	Use:   "progress [session]",
	Short: "Follow the progress of a download (latest when no session is given)",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		session := ""
		if len(args) == 1 {
			session = args[0]
		}
		if err := followProgress(serverURL, session, os.Stdout); err != nil {
			fail(err)
		}
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [session]",
	Short: "Show the state of a download session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		download, err := fetchStatus(args[0])
		if err != nil {
			fail(err)
		}
		printStatus(download)
	},
}

func init() {
	downloadCmd.Flags().IntP("resolution", "r", 720, "Maximum video height")
	downloadCmd.Flags().BoolP("detach", "d", false, "Start the download without following it")
}

func fetchStatus(session string) (*domain.Download, error) {
	resp, err := http.Get(serverURL + "/youtube/downloads/" + url.PathEscape(session))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp.StatusCode, body)
	}

	var download domain.Download
	if err := json.Unmarshal(body, &download); err != nil {
		return nil, fmt.Errorf("unexpected response: %w", err)
	}
	return &download, nil
}

// waitForStatus polls the session until the download has resolved. The
// progress stream can end early when the connection drops.
func waitForStatus(session string) (*domain.Download, error) {
	for {
		download, err := fetchStatus(session)
		if err != nil {
			return nil, err
		}
		if download.IsTerminal() {
			return download, nil
		}
		time.Sleep(time.Second)
	}
}

func printStatus(d *domain.Download) {
	fmt.Printf("Download Details:\n")
	fmt.Printf("  Session:    %s\n", d.ID)
	fmt.Printf("  URL:        %s\n", d.URL)
	fmt.Printf("  Resolution: %dp\n", d.Resolution)
	fmt.Printf("  Status:     %s\n", d.Status)
	fmt.Printf("  Created:    %s\n", d.CreatedAt.Format("2006-01-02 15:04:05"))
	if d.FilePath != "" {
		fmt.Printf("  File:       %s\n", d.FilePath)
	}
	if d.ErrorMessage != "" {
		fmt.Printf("  Error:      %s (%s)\n", d.ErrorMessage, d.ErrorKind)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
