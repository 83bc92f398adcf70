package app

import (
	"context"
	"fmt"
	"io"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/inertial_compass/internal/compass"
	"github.com/relabs-tech/inertial_compass/internal/config"
	"github.com/relabs-tech/inertial_compass/internal/mqttout"
)

// ConsoleLine formats one reading the way the console prints it.
func ConsoleLine(r compass.Reading) string {
	return fmt.Sprintf("[HEADING] %-9s rose=%7.2f  ROLL=%6.2f  PITCH=%6.2f  INCL=%6.2f",
		r.Heading.String(), r.Rotation(), r.Pose.Roll, r.Pose.Pitch, r.Inclination)
}

// RunConsoleMQTT prints every heading published on the broker until ctx is
// done.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer) error {
	log := logger.Sugar().Named("console")

	client, err := mqttout.Connect(cfg.MQTT.Broker, cfg.MQTT.ClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Infof("connected to MQTT broker at %s", cfg.MQTT.Broker)

	if err := subscribeConsole(client, cfg, log, out); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

func subscribeConsole(client mqtt.Client, cfg *config.Config, log *zap.SugaredLogger, out io.Writer) error {
	return mqttout.SubscribeHeading(client, cfg.MQTT.TopicHeading, cfg.MQTT.QoS, func(r compass.Reading) {
		fmt.Fprintln(out, ConsoleLine(r))
	}, log)
}
