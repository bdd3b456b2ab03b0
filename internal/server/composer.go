package server

import (
	"context"
	"fmt"

	"lfs-gateway/internal/httpapi"
	"lfs-gateway/internal/locks"
	"lfs-gateway/internal/logging"
	"lfs-gateway/internal/signer"
	"lfs-gateway/internal/storage"
	"lfs-gateway/internal/token"
)

// fileBackend groups the three storage-facing capabilities one storage
// selection produces: meta lookups, an optional byte proxy, and the
// link signer.
type fileBackend struct {
	meta   storage.MetaRequester
	proxy  storage.Proxy
	signer signer.LinkSigner
}

// customSigner builds the proxy-mode link signer from
// CUSTOM_SIGNER_HOST and the link-token codec configured by
// CUSTOM_SIGNER_SECRET_FILE / CUSTOM_SIGNER_EXPIRES_IN.
func customSigner(cfg *Config) (*signer.Custom, error) {
	host, err := requireString(customSignerHostKey, cfg.CustomSignerHost)
	if err != nil {
		return nil, err
	}
	secretFile, err := requireString(customSignerSecretFileKey, cfg.CustomSignerSecretFile)
	if err != nil {
		return nil, err
	}
	expiresIn, err := requireUint(customSignerExpiresInKey, cfg.CustomSignerExpiresIn)
	if err != nil {
		return nil, err
	}
	codec, err := token.NewCodecFromFile(secretFile, expiresIn)
	if err != nil {
		return nil, err
	}
	return signer.NewCustom(host, codec), nil
}

// fsBackend wires the local filesystem storage: it always signs its own
// links (there is nothing to presign against), so the custom signer
// comes along regardless of mode.
func fsBackend(cfg *Config) (*fileBackend, error) {
	root, err := requireString(fsRootPathKey, cfg.FSRootPath)
	if err != nil {
		return nil, err
	}
	custom, err := customSigner(cfg)
	if err != nil {
		return nil, err
	}
	fs := storage.NewFSBackend(root)
	return &fileBackend{meta: fs, proxy: fs, signer: custom}, nil
}

// sbsBackend wires the S3-compatible single-bucket storage. In proxy
// mode object bytes flow through this server and links are custom-
// signed; in signer mode clients get presigned URLs minted against the
// public-access endpoint/region (falling back to the internal one) and
// no proxy is mounted.
func sbsBackend(ctx context.Context, cfg *Config) (*fileBackend, error) {
	bucket, err := requireString(sbsBucketNameKey, cfg.SBSBucketName)
	if err != nil {
		return nil, err
	}
	accessKey, err := requireString(sbsAccessKeyFileKey, cfg.SBSAccessKey)
	if err != nil {
		return nil, err
	}
	secretKey, err := requireString(sbsSecretKeyFileKey, cfg.SBSSecretKey)
	if err != nil {
		return nil, err
	}
	if cfg.SBSRegion == "" && cfg.SBSHost == "" {
		return nil, fmt.Errorf("missing environment variable: %s or %s", sbsRegionKey, sbsHostKey)
	}

	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:  cfg.SBSHost,
		Region:    cfg.SBSRegion,
		AccessKey: accessKey,
		SecretKey: secretKey,
	})
	if err != nil {
		return nil, err
	}
	backend := storage.NewS3Backend(client, bucket)

	if cfg.WithProxy {
		custom, err := customSigner(cfg)
		if err != nil {
			return nil, err
		}
		return &fileBackend{meta: backend, proxy: backend, signer: custom}, nil
	}

	publicRegion := cfg.SBSPublicRegion
	publicHost := cfg.SBSPublicHost
	if publicRegion == "" && publicHost == "" {
		publicRegion = cfg.SBSRegion
		publicHost = cfg.SBSHost
	}
	publicClient, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:  publicHost,
		Region:    publicRegion,
		AccessKey: accessKey,
		SecretKey: secretKey,
	})
	if err != nil {
		return nil, err
	}
	return &fileBackend{meta: backend, signer: signer.NewS3(publicClient, bucket)}, nil
}

// Compose builds the full service bundle from the parsed config: one
// storage backend, one link signer, the repo-token codec, and the
// optional Postgres locks store.
func Compose(ctx context.Context, cfg *Config, log *logging.Logger) (*httpapi.Services, error) {
	jwtSecretFile, err := requireString(jwtSecretFileKey, cfg.JWTSecretFile)
	if err != nil {
		return nil, err
	}
	jwtExpiresIn, err := requireUint(jwtExpiresInKey, cfg.JWTExpiresIn)
	if err != nil {
		return nil, err
	}
	repoTokens, err := token.NewCodecFromFile(jwtSecretFile, jwtExpiresIn)
	if err != nil {
		return nil, err
	}

	var backend *fileBackend
	switch cfg.Storage {
	case LocalFileStorage:
		backend, err = fsBackend(cfg)
	case SingleBucketStorage:
		backend, err = sbsBackend(ctx, cfg)
	default:
		err = fmt.Errorf("unknown storage implementation")
	}
	if err != nil {
		return nil, err
	}

	services := &httpapi.Services{
		Meta:       backend.meta,
		Signer:     backend.signer,
		RepoTokens: repoTokens,
		Log:        log,
	}
	if cfg.WithProxy {
		services.Proxy = backend.proxy
	}

	if cfg.WithLocks {
		host, err := requireString(databaseHostKey, cfg.DatabaseHost)
		if err != nil {
			return nil, err
		}
		dbname, err := requireString(databaseNameKey, cfg.DatabaseName)
		if err != nil {
			return nil, err
		}
		user, err := requireString(databaseUserKey, cfg.DatabaseUser)
		if err != nil {
			return nil, err
		}
		password, err := requireString(databasePasswordFileKey, cfg.DatabasePassword)
		if err != nil {
			return nil, err
		}
		store, err := locks.Connect(ctx, host, dbname, user, password)
		if err != nil {
			return nil, err
		}
		services.Locks = store
	}

	return services, nil
}
