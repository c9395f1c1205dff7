package bootstrap

import (
	"context"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/ctxai/orchestrator-go/internal/auth"
	"github.com/ctxai/orchestrator-go/internal/config"
	"github.com/ctxai/orchestrator-go/internal/logger"
	"github.com/ctxai/orchestrator-go/internal/rag"
	"github.com/ctxai/orchestrator-go/internal/services"
	"github.com/ctxai/orchestrator-go/internal/storage"
)

// App 持有依赖容器与需要在退出时释放的资源
type App struct {
	container    *dig.Container
	cfg          atomic.Pointer[config.Config]
	cleanupTasks []func() error
}

// 全局实例，供控制器在请求处理时解析依赖
var globalApp *App

// GetApp 返回全局应用实例
func GetApp() *App {
	return globalApp
}

// SetGlobalApp 设置全局应用实例，测试里用来注入替身
func SetGlobalApp(app *App) {
	globalApp = app
}

// Invoke 从容器解析依赖并执行fn
func (a *App) Invoke(fn interface{}) error {
	return a.container.Invoke(fn)
}

// Config 返回当前配置快照
func (a *App) Config() *config.Config {
	return a.cfg.Load()
}

// Init 装配配置、日志与所有业务组件
func Init() (*App, error) {
	// .env是可选的，不存在不算错误
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	if err := logger.InitLogger(); err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	app := &App{container: dig.New()}
	app.cfg.Store(cfg)

	if err := app.provideAll(cfg); err != nil {
		return nil, err
	}

	// 配置文件热加载只更新快照，已装配的组件需要重启才会换参数
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		stop, err := config.Watch(path, func(newCfg *config.Config) {
			app.cfg.Store(newCfg)
		})
		if err != nil {
			logger.Warn("failed to watch config file", zap.String("file", path), zap.Error(err))
		} else {
			app.cleanupTasks = append(app.cleanupTasks, func() error {
				stop()
				return nil
			})
		}
	}

	logger.Info("application initialized",
		zap.String("env", cfg.Server.Env),
		zap.String("vector_dir", cfg.Storage.VectorDir),
		zap.String("storage_provider", cfg.Storage.Provider))
	return app, nil
}

// provideAll 向容器注册所有构造函数
func (a *App) provideAll(cfg *config.Config) error {
	providers := []interface{}{
		func() *config.Config { return cfg },

		func(c *config.Config) rag.Embedder {
			return rag.NewOpenAIEmbedder(c.AI.OpenAIAPIKey, c.AI.EmbeddingModel)
		},
		func(c *config.Config) rag.Generator {
			return rag.NewOpenAIGenerator(c.AI.OpenAIAPIKey, c.AI.ChatModel, c.AI.MaxTokens, c.AI.Temperature)
		},
		func(c *config.Config) *rag.Chunker {
			return rag.NewChunker(c.Knowledge.ChunkSize, c.Knowledge.ChunkOverlap)
		},
		func(c *config.Config, e rag.Embedder) *rag.Store {
			return rag.NewStore(c.Storage.VectorDir, e)
		},
		func(c *config.Config) *rag.Registry {
			return rag.NewRegistry(c.Storage.VectorDir)
		},
		rag.NewEngine,

		newUploadStore,

		func(c *config.Config) (*auth.JWTService, error) {
			return auth.NewJWTService(c.JWT.Secret, c.JWT.Issuer,
				time.Duration(c.JWT.ExpireMinutes)*time.Minute), nil
		},
		func() (*auth.UserStore, error) {
			return auth.NewUserStore(os.Getenv("ADMIN_PASSWORD"))
		},

		services.NewMetricsService,
		func(c *config.Config) *services.ResultCache {
			return services.NewResultCache(c.Cache.Enabled, c.Cache.Host, c.Cache.Port,
				c.Cache.DB, time.Duration(c.Cache.TTLSeconds)*time.Second)
		},
		services.NewDocumentService,
		func(engine *rag.Engine, e rag.Embedder, g rag.Generator,
			cache *services.ResultCache, m *services.MetricsService, c *config.Config) *services.QueryService {
			return services.NewQueryService(engine, e, g, cache, m, c.Knowledge.TopK)
		},
	}

	for _, p := range providers {
		if err := a.container.Provide(p); err != nil {
			return err
		}
	}

	// 缓存连接要在退出时关掉
	return a.container.Invoke(func(cache *services.ResultCache) {
		a.cleanupTasks = append(a.cleanupTasks, cache.Close)
	})
}

// newUploadStore 按配置选择本地磁盘或MinIO
func newUploadStore(c *config.Config) (storage.UploadStore, error) {
	if c.Storage.Provider == "minio" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return storage.NewMinIOStore(ctx, storage.MinIOOptions{
			Endpoint:  c.Storage.MinIO.Endpoint,
			AccessKey: c.Storage.MinIO.AccessKey,
			SecretKey: c.Storage.MinIO.SecretKey,
			Bucket:    c.Storage.MinIO.Bucket,
			UseSSL:    c.Storage.MinIO.UseSSL,
		})
	}
	return storage.NewLocalStore(c.Storage.UploadDir)
}

// Shutdown 逆序执行清理任务并刷新日志
func (a *App) Shutdown() {
	for i := len(a.cleanupTasks) - 1; i >= 0; i-- {
		if err := a.cleanupTasks[i](); err != nil {
			log.Printf("Cleanup error: %v\n", err)
		}
	}
	logger.Sync()
}
