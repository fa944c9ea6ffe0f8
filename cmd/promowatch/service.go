package main

import (
	"fmt"
	"log/slog"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/flemzord/promowatch/pkg/app"
)

// program adapts the application loop to the service manager's contract.
// Start must not block; the loop runs in a goroutine and the manager
// terminates the process on Stop.
type program struct {
	configPath string
	errCh      chan error
}

func (p *program) Start(_ service.Service) error {
	p.errCh = make(chan error, 1)
	go func() {
		p.errCh <- app.Run(app.RunParams{
			ConfigPath: p.configPath,
			Version:    version,
			Commit:     commit,
			Date:       date,
			LogLevel:   slog.LevelInfo,
		})
	}()
	return nil
}

func (p *program) Stop(_ service.Service) error {
	// app.Run installs its own signal handling; the service manager sends
	// SIGTERM before calling Stop, so the loop is already draining.
	return nil
}

func newService(configPath string) (service.Service, error) {
	svcConfig := &service.Config{
		Name:        "promowatch",
		DisplayName: "promowatch",
		Description: "Personal Telegram promotion watcher",
		Arguments:   []string{"service", "run"},
	}
	if configPath != "" {
		svcConfig.Arguments = append(svcConfig.Arguments, "--config", configPath)
	}
	return service.New(&program{configPath: configPath}, svcConfig)
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage promowatch as a system service",
	}
	cmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file")

	action := func(name string, fn func(service.Service) error) *cobra.Command {
		return &cobra.Command{
			Use:   name,
			Short: fmt.Sprintf("%s the promowatch service", capitalize(name)),
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfgPath, _ := cmd.Flags().GetString("config")
				svc, err := newService(cfgPath)
				if err != nil {
					return err
				}
				if err := fn(svc); err != nil {
					return err
				}
				fmt.Printf("Service %s: done\n", name)
				return nil
			},
		}
	}

	cmd.AddCommand(
		action("install", service.Service.Install),
		action("uninstall", service.Service.Uninstall),
		action("start", service.Service.Start),
		action("stop", service.Service.Stop),
		&cobra.Command{
			Use:    "run",
			Short:  "Run under the service manager (used by the manager itself)",
			Hidden: true,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfgPath, _ := cmd.Flags().GetString("config")
				svc, err := newService(cfgPath)
				if err != nil {
					return err
				}
				return svc.Run()
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the promowatch service status",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfgPath, _ := cmd.Flags().GetString("config")
				svc, err := newService(cfgPath)
				if err != nil {
					return err
				}
				status, err := svc.Status()
				if err != nil {
					return err
				}
				switch status {
				case service.StatusRunning:
					fmt.Println("running")
				case service.StatusStopped:
					fmt.Println("stopped")
				default:
					fmt.Println("unknown")
				}
				return nil
			},
		},
	)
	return cmd
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
