package kafka

import (
	"testing"

	"github.com/Shopify/sarama"
	"github.com/brfledger/utilitybilling/internal/config"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducerConfig_Defaults(t *testing.T) {
	cfg, err := NewProducerConfig(config.KafkaConfig{ClientID: "billing", MaxRetries: 3})
	require.NoError(t, err)

	assert.Equal(t, "billing", cfg.ClientID)
	assert.Equal(t, sarama.V2_1_0_0, cfg.Version)
	assert.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
	assert.True(t, cfg.Producer.Return.Successes)
	assert.Equal(t, 3, cfg.Producer.Retry.Max)
	assert.True(t, cfg.Producer.Idempotent)
	assert.False(t, cfg.Net.SASL.Enable)
	assert.False(t, cfg.Net.TLS.Enable)
	require.NoError(t, cfg.Validate())
}

func TestNewProducerConfig_RequiredAcks(t *testing.T) {
	tests := []struct {
		name    string
		acks    string
		want    sarama.RequiredAcks
		wantErr bool
	}{
		{name: "all", acks: "all", want: sarama.WaitForAll},
		{name: "leader", acks: "Leader", want: sarama.WaitForLocal},
		{name: "none", acks: "none", want: sarama.NoResponse},
		{name: "unknown", acks: "quorum", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewProducerConfig(config.KafkaConfig{RequiredAcks: tt.acks})
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, ierr.IsConfiguration(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Producer.RequiredAcks)
			assert.False(t, cfg.Producer.Idempotent, "idempotence needs retries")
		})
	}
}

func TestNewProducerConfig_RejectsBadVersion(t *testing.T) {
	_, err := NewProducerConfig(config.KafkaConfig{Version: "two"})
	require.Error(t, err)
	assert.True(t, ierr.IsConfiguration(err))
}

func TestNewProducerConfig_SASL(t *testing.T) {
	cfg, err := NewProducerConfig(config.KafkaConfig{
		UseSASL:       true,
		SASLMechanism: sarama.SASLTypeSCRAMSHA512,
		SASLUser:      "billing",
		SASLPassword:  "secret",
	})
	require.NoError(t, err)
	assert.True(t, cfg.Net.TLS.Enable)
	assert.True(t, cfg.Net.SASL.Enable)
	require.NotNil(t, cfg.Net.SASL.SCRAMClientGeneratorFunc)
	assert.NoError(t, cfg.Net.SASL.SCRAMClientGeneratorFunc().Begin("billing", "secret", ""))

	_, err = NewProducerConfig(config.KafkaConfig{UseSASL: true, SASLMechanism: "GSSAPI"})
	require.Error(t, err)
	assert.True(t, ierr.IsConfiguration(err))
}

func TestNewProducerConfig_FromDefaultConfiguration(t *testing.T) {
	cfg, err := NewProducerConfig(config.GetDefaultConfig().Kafka)
	require.NoError(t, err)

	assert.Equal(t, "utilitybilling", cfg.ClientID)
	assert.Equal(t, 5, cfg.Producer.Retry.Max)
	assert.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
	require.NoError(t, cfg.Validate())
}
