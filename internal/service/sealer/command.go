package sealer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"

	"github.com/oshokin/mqtt-stat/internal/audio"
	"github.com/oshokin/mqtt-stat/internal/config"
	"github.com/oshokin/mqtt-stat/internal/logger"
)

// Options contains inputs for the sealer entry point.
type Options struct {
	// ConfigPath locates the settings that name the assets directory and identity file.
	ConfigPath string
	// SoundFile is the plaintext WAV file to seal.
	SoundFile string
	// AssetName overrides the asset name, defaults to the configured alarm asset.
	AssetName string
}

// assetsDirMode is used when the assets directory has to be created.
const assetsDirMode = 0o750

// errNotX25519 is returned when the identity file holds a key that cannot name a recipient.
var errNotX25519 = errors.New("identity is not an age X25519 key")

// sealer encrypts sounds for one agent installation.
// It is unexported; callers should use Run.
type sealer struct {
	// cfg holds the audio and alarm settings.
	cfg *config.Config
	// identity decrypts what recipient encrypts.
	identity *age.X25519Identity
	// created reports whether the identity was generated by this run.
	created bool
}

// Run seals opts.SoundFile into the configured assets directory.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "mqtt-stat-seal")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	s, err := newSealer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize sealer: %w", err)
	}

	name := opts.AssetName
	if name == "" {
		name = cfg.Alarm.Asset
	}

	if err = s.Run(ctx, opts.SoundFile, name); err != nil {
		return fmt.Errorf("sealer failed: %w", err)
	}

	logger.Info(ctx, "Sealer completed successfully")

	return nil
}

// newSealer loads the configured identity, generating it when the file does not exist.
func newSealer(ctx context.Context, cfg *config.Config) (*sealer, error) {
	path := filepath.Clean(cfg.Audio.IdentityFile)

	contents, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		identity, err := generateIdentity(path)
		if err != nil {
			return nil, err
		}

		logger.InfoKV(ctx, "Generated new identity", "path", path)

		return &sealer{cfg: cfg, identity: identity, created: true}, nil
	case err != nil:
		return nil, fmt.Errorf("read identity file: %w", err)
	}

	identities, err := age.ParseIdentities(bytes.NewReader(contents))
	if err != nil {
		return nil, fmt.Errorf("parse identity file %s: %w", path, err)
	}

	for _, id := range identities {
		if x, ok := id.(*age.X25519Identity); ok {
			return &sealer{cfg: cfg, identity: x}, nil
		}
	}

	return nil, fmt.Errorf("%s: %w", path, errNotX25519)
}

// Run checks the sound and writes it encrypted as the named asset.
func (s *sealer) Run(ctx context.Context, soundFile, name string) error {
	if name == "" || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", audio.ErrInvalidAssetName, name)
	}

	plaintext, err := os.ReadFile(filepath.Clean(soundFile))
	if err != nil {
		return fmt.Errorf("read sound: %w", err)
	}

	player, err := audio.NewPlayer(plaintext)
	if err != nil {
		return fmt.Errorf("check sound %s: %w", soundFile, err)
	}

	if err = os.MkdirAll(s.cfg.Audio.AssetsDir, assetsDirMode); err != nil {
		return fmt.Errorf("create assets directory: %w", err)
	}

	target := audio.AssetPath(s.cfg.Audio.AssetsDir, name)

	var sealed bytes.Buffer
	if err = audio.Encrypt(&sealed, bytes.NewReader(plaintext), s.identity.Recipient()); err != nil {
		return err
	}

	if err = os.WriteFile(target, sealed.Bytes(), config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write asset: %w", err)
	}

	logger.InfoKV(ctx, "Sealed sound", "asset", target, "duration", player.Duration().String())

	s.printNextSteps(ctx, name, target)

	return nil
}

// printNextSteps logs what has to be copied to the agent machine.
func (s *sealer) printNextSteps(ctx context.Context, name, target string) {
	var builder strings.Builder

	builder.WriteString("Copy the following files to the agent machine:\n")
	builder.WriteString(target)
	builder.WriteString(",\n")
	builder.WriteString(s.cfg.Audio.IdentityFile)

	if s.created {
		builder.WriteString("\n\nThe identity file is new. Keep a copy: without it the sealed sounds cannot be played.")
	}

	if name != s.cfg.Alarm.Asset {
		builder.WriteString("\n\nSet alarm.asset to \"")
		builder.WriteString(name)
		builder.WriteString("\" in the settings to play this sound on find.")
	}

	logger.Info(ctx, builder.String())
}

// generateIdentity creates a fresh X25519 identity and stores it at path.
func generateIdentity(path string) (*age.X25519Identity, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generate identity: %w", err)
	}

	contents := fmt.Sprintf("# public key: %s\n%s\n", identity.Recipient(), identity)

	// O_EXCL keeps a concurrently created key intact.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, config.DefaultFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("create identity file: %w", err)
	}

	if _, err = f.WriteString(contents); err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("write identity file: %w", err)
	}

	if err = f.Close(); err != nil {
		return nil, fmt.Errorf("close identity file: %w", err)
	}

	return identity, nil
}
