package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/KOMKZ/go-yogan-monitor/config"
	"github.com/KOMKZ/go-yogan-monitor/flagx"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type setupOptions struct {
	Dir   string `flag:"dir" usage:"directory to write the files into" default:"."`
	Force bool   `flag:"force" usage:"overwrite existing files without asking"`
}

// setupAnswers collected by the wizard
type setupAnswers struct {
	TargetURL     string
	BackendURL    string
	BackendKey    string
	WebhookURL    string
	Port          int
	CheckInterval time.Duration
	DashboardPort int
}

func newSetupCommand() *cobra.Command {
	var opts setupOptions
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Interactively write config/monitor.json and .env.monitor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flagx.ParseFlags(cmd, &opts); err != nil {
				return err
			}
			return runSetup(cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}
	return bind(cmd, &opts)
}

func runSetup(in io.Reader, out io.Writer, opts setupOptions) error {
	p := &prompter{in: bufio.NewReader(in), out: out}
	configPath := filepath.Join(opts.Dir, config.DefaultConfigFile)
	envPath := filepath.Join(opts.Dir, config.DefaultDotenvFile)

	fmt.Fprintln(out, "Yogan monitor setup")
	if !opts.Force && (exists(configPath) || exists(envPath)) {
		ok, err := p.confirm("Existing configuration found, overwrite?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Setup cancelled")
			return nil
		}
	}

	a, err := p.collect()
	if err != nil {
		return err
	}

	if err := writeConfigFile(configPath, a); err != nil {
		return err
	}
	if err := writeEnvFile(envPath, a); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nWrote %s\nWrote %s\n", configPath, envPath)
	if a.BackendURL == "" || a.BackendKey == "" {
		fmt.Fprintln(out, "Backend credentials are empty: start will refuse to run until they are set.")
	}
	fmt.Fprintln(out, "Run 'yogan-monitor start' to begin monitoring.")
	return nil
}

// prompter line oriented questions with defaults
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *prompter) collect() (setupAnswers, error) {
	var (
		a   setupAnswers
		err error
	)
	urlRule := func(v string) error { return validation.Validate(v, is.URL) }

	if a.TargetURL, err = p.ask("Target application URL", "http://localhost:3000", urlRule); err != nil {
		return a, err
	}
	if a.BackendURL, err = p.ask("Backend URL", "", urlRule); err != nil {
		return a, err
	}
	if a.BackendKey, err = p.ask("Backend API key", "", nil); err != nil {
		return a, err
	}
	if a.WebhookURL, err = p.ask("Alert webhook URL (optional)", "", urlRule); err != nil {
		return a, err
	}
	if a.Port, err = p.askPort("Monitor API port", 3001); err != nil {
		return a, err
	}
	raw, err := p.ask("Health check interval", "30s", func(v string) error {
		d, err := time.ParseDuration(v)
		if err == nil && d <= 0 {
			err = errors.New("must be positive")
		}
		return err
	})
	if err != nil {
		return a, err
	}
	a.CheckInterval, _ = time.ParseDuration(raw)
	if a.DashboardPort, err = p.askPort("Dashboard port", 8080); err != nil {
		return a, err
	}
	return a, nil
}

// ask prints label, reads one line and re-asks until check passes.
// An empty answer takes def. End of input with an invalid answer is an error.
func (p *prompter) ask(label, def string, check func(string) error) (string, error) {
	for {
		if def != "" {
			fmt.Fprintf(p.out, "%s [%s]: ", label, def)
		} else {
			fmt.Fprintf(p.out, "%s: ", label)
		}

		line, readErr := p.in.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return "", fmt.Errorf("read answer: %w", readErr)
		}
		v := strings.TrimSpace(line)
		if v == "" {
			v = def
		}

		if v == "" || check == nil {
			return v, nil
		}
		err := check(v)
		if err == nil {
			return v, nil
		}
		if readErr != nil {
			return "", fmt.Errorf("%s: %w", strings.ToLower(label), err)
		}
		fmt.Fprintf(p.out, "  invalid value: %v\n", err)
	}
}

func (p *prompter) askPort(label string, def int) (int, error) {
	raw, err := p.ask(label, strconv.Itoa(def), func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("must be a number")
		}
		// Min skips zero, and port 0 would bind a random port
		return validation.Validate(n, validation.Required.Error("must be no less than 1"), validation.Min(1), validation.Max(65534))
	})
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(raw)
}

func (p *prompter) confirm(label string) (bool, error) {
	v, err := p.ask(label+" (y/N)", "", nil)
	if err != nil {
		return false, err
	}
	v = strings.ToLower(v)
	return v == "y" || v == "yes", nil
}

// writeConfigFile non-secret settings; credentials go to the dotenv file
func writeConfigFile(path string, a setupAnswers) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}

	v := viper.New()
	v.Set("checks.target_url", a.TargetURL)
	v.Set("monitor.server.port", a.Port)
	v.Set("monitor.check_interval", a.CheckInterval.String())
	v.Set("dashboard.server.port", a.DashboardPort)
	v.Set("dashboard.monitor_url", fmt.Sprintf("http://localhost:%d", a.Port))

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeEnvFile(path string, a setupAnswers) error {
	env := make(map[string]string)
	put := func(key, value string) {
		if value != "" {
			env[config.DefaultEnvPrefix+"_"+config.EnvBindings[key]] = value
		}
	}
	put("backend.url", a.BackendURL)
	put("backend.key", a.BackendKey)
	put("alert.webhook.url", a.WebhookURL)

	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return os.Chmod(path, 0o600)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
