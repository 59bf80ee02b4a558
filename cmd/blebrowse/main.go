// cmd/blebrowse/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli"
	"go.uber.org/zap"

	"ble-discovery-service/internal/config"
	"ble-discovery-service/internal/discovery"
	"ble-discovery-service/internal/driver"
	"ble-discovery-service/internal/utils"
	pkgdriver "ble-discovery-service/pkg/driver"
)

func main() {
	app := cli.NewApp()
	app.Name = "blebrowse"
	app.Usage = "print BLE peripherals as they are discovered"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "driver, d",
			Value: "tinygo",
			Usage: "Radio driver to scan with (tinygo, noop)",
		},
		cli.DurationFlag{
			Name:  "retry-interval",
			Value: discovery.DefaultRetryInterval,
			Usage: "Delay between two attempts to start scanning",
		},
		cli.DurationFlag{
			Name:  "enable-interval",
			Value: 2 * time.Second,
			Usage: "Delay between two attempts to enable the adapter",
		},
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: "Log scan controller decisions",
		},
	}
	app.Action = browseCommand

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("blebrowse: %v", err))
		os.Exit(1)
	}
}

func browseCommand(c *cli.Context) error {
	level := "warn"
	if c.Bool("verbose") {
		level = "debug"
	}

	logger, err := utils.NewLogger(&config.LoggingConfig{
		Level:  level,
		Format: "console",
		Output: "stderr",
	})
	if err != nil {
		return err
	}
	defer utils.CloseLogger(logger)

	scanConfig := &config.ScanConfig{
		Driver:              c.String("driver"),
		RetryInterval:       c.Duration("retry-interval"),
		EnableRetryInterval: c.Duration("enable-interval"),
	}

	registry := driver.NewRegistry(logger)
	driver.RegisterDefaultDrivers(registry, logger)

	radio, err := registry.CreateRadio(scanConfig.Driver, scanConfig)
	if err != nil {
		return err
	}
	if err := radio.Open(context.Background()); err != nil {
		return fmt.Errorf("failed to open radio: %w", err)
	}
	defer radio.Close()

	controller := discovery.NewScanController(radio, logger,
		discovery.WithRetryInterval(scanConfig.RetryInterval),
	)
	defer controller.Close()

	unsubscribe := controller.Subscribe(printPeripheral)
	defer unsubscribe()

	controller.Start()
	logger.Info("Browsing for BLE peripherals", zap.String("driver", radio.Name()))
	fmt.Fprintln(os.Stderr, color.New(color.Faint).Sprint("Browsing, press Ctrl+C to stop"))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return nil
}

var (
	nameColor    = color.New(color.FgGreen, color.Bold).SprintFunc()
	addressColor = color.New(color.FgCyan).SprintFunc()
	rssiColor    = color.New(color.FgYellow).SprintFunc()
)

func printPeripheral(peripheral pkgdriver.Peripheral) {
	fmt.Println(formatPeripheral(peripheral))
}

func formatPeripheral(peripheral pkgdriver.Peripheral) string {
	return fmt.Sprintf("Found device: name=%s address=%s rssi=%s",
		nameColor(peripheral.DisplayName()),
		addressColor(peripheral.Address),
		rssiColor(peripheral.RSSI),
	)
}
