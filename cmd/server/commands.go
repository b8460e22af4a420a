package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/filesystem-mcp/internal/infrastructure/server"
	"github.com/GriffinCanCode/filesystem-mcp/internal/installer"
	"github.com/GriffinCanCode/filesystem-mcp/internal/logging"
	"github.com/GriffinCanCode/filesystem-mcp/internal/mcp"
	"github.com/GriffinCanCode/filesystem-mcp/internal/sandbox"
)

// rootCommand builds the fsmcp command tree. Running it without a
// subcommand serves MCP over stdio.
func rootCommand() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "fsmcp",
		Short:         "Read-only filesystem MCP server",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g)
		},
	}
	g.register(rootCmd)

	rootCmd.AddCommand(
		serveCommand(g),
		httpCommand(g),
		installCommand(g),
		uninstallCommand(g),
		backupsCommand(),
		toolsCommand(g),
		policyCommand(g),
		versionCommand(),
	)
	return rootCmd
}

func serveCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g)
		},
	}
}

func runServe(cmd *cobra.Command, g *globalFlags) error {
	cfg, err := g.loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	}()

	// A read blocked on stdin cannot observe cancellation, so a signal
	// returns without waiting for it.
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("Shutting down stdio session")
		return nil
	}
}

func httpCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve the tools over HTTP and WebSocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := server.NewServer(cfg, a.registry, a.server, a.metrics, logger.Named("http").Logger)
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().String("host", "", "Listen host (default from HOST or 127.0.0.1)")
	cmd.Flags().String("port", "", "Listen port (default from PORT or 8765)")
	return cmd
}

func installCommand(g *globalFlags) *cobra.Command {
	var (
		configPath   string
		command      string
		dryRun       bool
		launchScript string
		env          map[string]string
	)

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Register the server in the Claude Desktop config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			path, err := resolveConfigPath(configPath)
			if err != nil {
				return err
			}
			if command == "" {
				if command, err = os.Executable(); err != nil {
					return fmt.Errorf("failed to locate executable: %w", err)
				}
			}
			root := g.root
			if root == "" {
				if root, err = os.Getwd(); err != nil {
					return fmt.Errorf("failed to get working directory: %w", err)
				}
			}
			if root, err = filepath.Abs(root); err != nil {
				return fmt.Errorf("failed to resolve root: %w", err)
			}

			entry := installer.ServerEntry{
				Command: command,
				Args:    []string{"serve", "--root", root},
				Env:     env,
			}

			logger, err := g.commandLogger(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			in := installer.New(path,
				installer.WithDryRun(dryRun),
				installer.WithVersion(mcp.ServerVersion),
				installer.WithLogger(logger.Named("installer").Logger),
			)
			res, err := in.Install(entry)
			if err != nil {
				return err
			}

			if dryRun {
				fmt.Fprintf(out, "Would write %s:\n%s", res.ConfigPath, res.Document)
			} else if res.Changed {
				fmt.Fprintf(out, "Configuration saved to: %s\n", res.ConfigPath)
				if res.BackupPath != "" {
					fmt.Fprintf(out, "Backup: %s\n", res.BackupPath)
				}
			} else {
				fmt.Fprintf(out, "Configuration already up to date: %s\n", res.ConfigPath)
			}

			if launchScript != "" && !dryRun {
				script, err := installer.WriteLaunchScript(launchScript, runtime.GOOS, entry)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Launch script: %s\n", script)
			}

			if !dryRun {
				fmt.Fprintf(out, "Sandbox root: %s\nRestart Claude Desktop to load the filesystem tools.\n", root)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Claude Desktop config file (default: platform location)")
	cmd.Flags().StringVar(&command, "command", "", "Server executable to register (default: this binary)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the merged config instead of writing it")
	cmd.Flags().StringVar(&launchScript, "launch-script", "", "Also write a launch script into this directory")
	cmd.Flags().StringToStringVar(&env, "env", nil, "Environment for the server process (KEY=VALUE)")
	return cmd
}

func uninstallCommand(g *globalFlags) *cobra.Command {
	var (
		configPath string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the server from the Claude Desktop config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			path, err := resolveConfigPath(configPath)
			if err != nil {
				return err
			}
			logger, err := g.commandLogger(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			res, err := installer.New(path,
				installer.WithDryRun(dryRun),
				installer.WithVersion(mcp.ServerVersion),
				installer.WithLogger(logger.Named("installer").Logger),
			).Uninstall()
			if err != nil {
				return err
			}

			switch {
			case !res.Changed:
				fmt.Fprintf(out, "Server not registered in %s\n", res.ConfigPath)
			case dryRun:
				fmt.Fprintf(out, "Would write %s:\n%s", res.ConfigPath, res.Document)
			default:
				fmt.Fprintf(out, "Removed server from %s\n", res.ConfigPath)
				if res.BackupPath != "" {
					fmt.Fprintf(out, "Backup: %s\n", res.BackupPath)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Claude Desktop config file (default: platform location)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the resulting config instead of writing it")
	return cmd
}

func backupsCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "backups",
		Short: "List backups of the Claude Desktop config written by install and uninstall",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			path, err := resolveConfigPath(configPath)
			if err != nil {
				return err
			}
			backups, err := installer.New(path).ListBackups()
			if err != nil {
				return err
			}
			if len(backups) == 0 {
				fmt.Fprintf(out, "No backups of %s\n", path)
				return nil
			}
			for _, b := range backups {
				fmt.Fprintln(out, b)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Claude Desktop config file (default: platform location)")
	return cmd
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return installer.DefaultConfigPath()
}

func toolsCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the tool list as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			a, err := newApp(cfg, logging.NewNop())
			if err != nil {
				return err
			}
			defer a.Close()

			return writeJSON(cmd.OutOrStdout(), mcp.ToolsListResult{Tools: a.server.Tools()})
		},
	}
}

// policyReport is the document printed by the policy command.
type policyReport struct {
	Root   string           `json:"root" yaml:"root" toml:"root"`
	Policy sandbox.Snapshot `json:"policy" yaml:"policy" toml:"policy"`
}

func policyCommand(g *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Print the effective sandbox root and policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			root, err := sandboxRoot(cfg)
			if err != nil {
				return err
			}
			policy := sandbox.DefaultPolicy()
			guard, err := sandbox.NewGuard(root, policy)
			if err != nil {
				return err
			}
			report := policyReport{Root: guard.Root(), Policy: policy.Snapshot()}
			guard.Close()

			return writeReport(cmd.OutOrStdout(), format, report)
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json, yaml or toml")
	return cmd
}

func writeReport(w io.Writer, format string, v interface{}) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case "json":
		return writeJSON(w, v)
	case "yaml", "yml":
		data, err = yaml.Marshal(v)
	case "toml":
		data, err = toml.Marshal(v)
	default:
		return fmt.Errorf("unsupported format %q (want json, yaml or toml)", format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	_, err = w.Write(data)
	return err
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fsmcp %s (MCP %s, %s/%s)\n",
				mcp.ServerVersion, mcp.ProtocolVersion, runtime.GOOS, runtime.GOARCH)
		},
	}
}
