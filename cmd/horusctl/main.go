// Command horusctl is the thin cobra CLI: submit, status, fetch, configs
// validate, providers health. With --local, submit wires a throwaway
// service.Context directly instead of making an HTTP round trip, mirroring
// the original CLI's _local_context() helper, and status/fetch read the
// local artifact directory. configs validate always runs locally;
// providers health always calls the API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"horus/internal/apiclient"
	"horus/internal/logging"
	"horus/internal/service"
	"horus/pkg/models"
)

var (
	apiURL   string
	localRun bool
	baseDir  string
)

func apiBase() string {
	if apiURL != "" {
		return apiURL
	}
	return "http://127.0.0.1:8080"
}

func apiClient() *apiclient.Client {
	return apiclient.New(apiBase())
}

func localContext() (*service.Context, error) {
	log := logging.New(false)
	svc := service.New(baseDir, "ffmpeg", log, nil)
	if err := svc.Load(context.Background()); err != nil {
		return nil, err
	}
	return svc, nil
}

func main() {
	root := &cobra.Command{Use: "horusctl", Short: "HORUS video generation control CLI"}
	root.PersistentFlags().StringVar(&baseDir, "base-dir", ".", "root directory containing configs/ and artifacts/ (--local only)")

	root.AddCommand(submitCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(fetchCmd())
	root.AddCommand(configsCmd())
	root.AddCommand(providersCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func submitCmd() *cobra.Command {
	var prompt, ratio, res, format, template string
	var duration, fps, priority int

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a new generation job",
		RunE: func(cmd *cobra.Command, args []string) error {
			metadata := map[string]interface{}{}
			if template != "" {
				metadata["template"] = template
			}
			job := models.JobRequest{
				Prompt:       prompt,
				DurationS:    duration,
				AspectRatio:  models.AspectRatio(ratio),
				Resolution:   models.Resolution(res),
				FPS:          fps,
				OutputFormat: models.OutputFormat(format),
				Priority:     priority,
				Metadata:     metadata,
			}

			if localRun {
				svc, err := localContext()
				if err != nil {
					return err
				}
				jobID, err := svc.SubmitJob(job)
				if err != nil {
					return err
				}
				fmt.Println(jobID)
				return nil
			}

			jobID, err := apiClient().SubmitJob(cmd.Context(), job)
			if err != nil {
				return err
			}
			fmt.Println(jobID)
			return nil
		},
	}
	cmd.Flags().StringVar(&prompt, "prompt", "", "scene prompt")
	cmd.Flags().IntVar(&duration, "duration", 0, "duration in seconds")
	cmd.Flags().StringVar(&ratio, "ratio", "16:9", "aspect ratio")
	cmd.Flags().StringVar(&res, "res", "1080p", "resolution")
	cmd.Flags().IntVar(&fps, "fps", 24, "frames per second")
	cmd.Flags().StringVar(&format, "format", "mp4", "output format")
	cmd.Flags().IntVar(&priority, "priority", 0, "priority")
	cmd.Flags().StringVar(&template, "template", "", "named job template")
	cmd.Flags().StringVar(&apiURL, "api", "", "orchestrator API base URL")
	cmd.Flags().BoolVar(&localRun, "local", false, "run locally instead of over HTTP")
	cmd.MarkFlagRequired("prompt")
	cmd.MarkFlagRequired("duration")
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <job_id>",
		Short: "Show a job's current status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID := args[0]
			if localRun {
				artifactsDir := filepath.Join(baseDir, "artifacts", jobID)
				if _, err := os.Stat(artifactsDir); err != nil {
					os.Exit(1)
				}
				status := "unknown"
				if matches, _ := filepath.Glob(filepath.Join(artifactsDir, "output.*")); len(matches) > 0 {
					status = "succeeded"
				} else if _, err := os.Stat(filepath.Join(artifactsDir, "scene_spec.json")); err == nil {
					status = "spec_only"
				}
				out, _ := json.Marshal(map[string]string{"job_id": jobID, "status": status})
				fmt.Println(string(out))
				return nil
			}

			rec, err := apiClient().GetJob(cmd.Context(), jobID)
			if err != nil {
				var notFound *apiclient.NotFoundError
				if errors.As(err, &notFound) {
					os.Exit(1)
				}
				return err
			}
			out, _ := json.Marshal(rec)
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&apiURL, "api", "", "orchestrator API base URL")
	cmd.Flags().BoolVar(&localRun, "local", false, "read the local artifact directory instead of the API")
	return cmd
}

func fetchCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "fetch <job_id>",
		Short: "Download a job's output artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID := args[0]
			if localRun {
				artifactsDir := filepath.Join(baseDir, "artifacts", jobID)
				matches, _ := filepath.Glob(filepath.Join(artifactsDir, "output.*"))
				if len(matches) == 0 {
					os.Exit(1)
				}
				data, err := os.ReadFile(matches[0])
				if err != nil {
					return err
				}
				return os.WriteFile(out, data, 0o644)
			}

			data, err := apiClient().FetchArtifact(cmd.Context(), jobID, "output")
			if err != nil {
				var notFound *apiclient.NotFoundError
				if errors.As(err, &notFound) {
					os.Exit(1)
				}
				return err
			}
			return os.WriteFile(out, data, 0o644)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file path")
	cmd.Flags().StringVar(&apiURL, "api", "", "orchestrator API base URL")
	cmd.Flags().BoolVar(&localRun, "local", false, "read the local artifact directory instead of the API")
	cmd.MarkFlagRequired("out")
	return cmd
}

func configsCmd() *cobra.Command {
	parent := &cobra.Command{Use: "configs", Short: "Configuration document operations"}
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Validate the four configuration documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := localContext()
			if err != nil {
				return err
			}
			if err := svc.ValidateConfig(); err != nil {
				return err
			}
			fmt.Println("configs_ok")
			return nil
		},
	}
	parent.AddCommand(validate)
	return parent
}

func providersCmd() *cobra.Command {
	parent := &cobra.Command{Use: "providers", Short: "Provider operations"}
	health := &cobra.Command{
		Use:   "health",
		Short: "Show every provider's health/circuit status",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := apiClient().ProviderHealth(cmd.Context())
			if err != nil {
				return err
			}
			out, _ := json.Marshal(statuses)
			fmt.Println(string(out))
			return nil
		},
	}
	health.Flags().StringVar(&apiURL, "api", "", "orchestrator API base URL")
	parent.AddCommand(health)
	return parent
}
