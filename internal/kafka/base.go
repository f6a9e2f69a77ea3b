// Package kafka builds the sarama producer configuration used to publish billing events.
package kafka

import (
	"crypto/sha256"
	"crypto/sha512"
	"crypto/tls"
	"hash"
	"strings"

	"github.com/Shopify/sarama"
	"github.com/brfledger/utilitybilling/internal/config"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/xdg-go/scram"
)

const defaultVersion = "2.1.0"

// NewProducerConfig returns a synchronous producer config: every publish waits for the
// configured acks so a billing run only reports events the brokers accepted.
func NewProducerConfig(cfg config.KafkaConfig) (*sarama.Config, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.ClientID = cfg.ClientID

	version := cfg.Version
	if version == "" {
		version = defaultVersion
	}
	v, err := sarama.ParseKafkaVersion(version)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Unsupported kafka version %q", version).
			Mark(ierr.ErrConfiguration)
	}
	saramaConfig.Version = v

	acks, err := requiredAcks(cfg.RequiredAcks)
	if err != nil {
		return nil, err
	}
	saramaConfig.Producer.RequiredAcks = acks
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.Retry.Max = cfg.MaxRetries
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	// events of one period share a partition key; keep them ordered across retries
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	if acks == sarama.WaitForAll && cfg.MaxRetries > 0 {
		saramaConfig.Producer.Idempotent = true
		saramaConfig.Net.MaxOpenRequests = 1
	}

	if cfg.TLS || cfg.UseSASL {
		saramaConfig.Net.TLS.Enable = true
		saramaConfig.Net.TLS.Config = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	if !cfg.UseSASL {
		return saramaConfig, nil
	}

	saramaConfig.Net.SASL.Enable = true
	saramaConfig.Net.SASL.Mechanism = cfg.SASLMechanism
	saramaConfig.Net.SASL.User = cfg.SASLUser
	saramaConfig.Net.SASL.Password = cfg.SASLPassword

	switch cfg.SASLMechanism {
	case sarama.SASLTypeSCRAMSHA256, sarama.SASLTypeSCRAMSHA512:
		generator := hashGenerator(cfg.SASLMechanism)
		saramaConfig.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
			return &scramClient{hashGenerator: generator}
		}
	case sarama.SASLTypePlaintext:
	default:
		return nil, ierr.NewError("unsupported sasl mechanism").
			WithHintf("kafka.sasl_mechanism must be one of %s, %s, %s",
				sarama.SASLTypePlaintext, sarama.SASLTypeSCRAMSHA256, sarama.SASLTypeSCRAMSHA512).
			Mark(ierr.ErrConfiguration)
	}

	return saramaConfig, nil
}

func requiredAcks(value string) (sarama.RequiredAcks, error) {
	switch strings.ToLower(value) {
	case "", "all":
		return sarama.WaitForAll, nil
	case "leader":
		return sarama.WaitForLocal, nil
	case "none":
		return sarama.NoResponse, nil
	}
	return 0, ierr.NewError("unsupported kafka required acks").
		WithHintf("kafka.required_acks must be all, leader or none, got %q", value).
		Mark(ierr.ErrConfiguration)
}

// scramClient adapts an xdg-go/scram conversation to sarama's SCRAMClient
type scramClient struct {
	hashGenerator scram.HashGeneratorFcn
	conversation  *scram.ClientConversation
}

func (c *scramClient) Begin(userName, password, authzID string) error {
	client, err := c.hashGenerator.NewClient(userName, password, authzID)
	if err != nil {
		return err
	}
	c.conversation = client.NewConversation()
	return nil
}

func (c *scramClient) Step(challenge string) (string, error) {
	return c.conversation.Step(challenge)
}

func (c *scramClient) Done() bool {
	return c.conversation.Done()
}

func hashGenerator(mechanism sarama.SASLMechanism) scram.HashGeneratorFcn {
	if mechanism == sarama.SASLTypeSCRAMSHA256 {
		return func() hash.Hash { return sha256.New() }
	}
	return func() hash.Hash { return sha512.New() }
}
