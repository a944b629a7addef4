package cmd

import (
	"fmt"
	"os"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

// dashboardService adapts the server loop to the platform service manager.
type dashboardService struct {
	done chan struct{}
}

func (s *dashboardService) Start(svc service.Service) error {
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		if err := runServer(); err != nil {
			fmt.Fprintln(os.Stderr, "service error:", err)
		}
	}()
	return nil
}

func (s *dashboardService) Stop(svc service.Service) error {
	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		return err
	}
	// runServer shuts down on interrupt.
	if err := p.Signal(os.Interrupt); err != nil {
		return err
	}
	<-s.done
	return nil
}

func newService() (service.Service, error) {
	svcConfig := &service.Config{
		Name:        "cclens",
		DisplayName: "cclens dashboard",
		Description: "Local Claude Code usage dashboard",
		Arguments:   []string{"serve"},
	}
	return service.New(&dashboardService{}, svcConfig)
}

func serviceAction(action string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	if err := service.Control(svc, action); err != nil {
		return fmt.Errorf("service %s: %w", action, err)
	}
	fmt.Printf("service %s: ok\n", action)
	return nil
}

var serviceInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the dashboard as a system service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serviceAction("install")
	},
}

var serviceUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the dashboard service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serviceAction("uninstall")
	},
}

var serviceStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the dashboard service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serviceAction("start")
	},
}

var serviceStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the dashboard service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serviceAction("stop")
	},
}

var serviceStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the dashboard service status",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		status, err := svc.Status()
		if err != nil {
			return fmt.Errorf("service status: %w", err)
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
}
