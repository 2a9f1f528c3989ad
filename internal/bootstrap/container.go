package bootstrap

import (
	"context"
	"log"
	"time"

	"talkback-be/internal/cache"
	"talkback-be/internal/config"
	"talkback-be/internal/controller"
	"talkback-be/internal/event"
	"talkback-be/internal/handler"
	"talkback-be/internal/pkg/logger"
	"talkback-be/internal/repository/implementation"
	"talkback-be/internal/service"
	"talkback-be/internal/vectorstore"
	internalWS "talkback-be/internal/websocket"
	"talkback-be/pkg/embedding"
	"talkback-be/pkg/events"
	"talkback-be/pkg/imagery"
	"talkback-be/pkg/llm/factory"
	"talkback-be/pkg/speech"

	pktNats "talkback-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const cleanupTopic = "RESIDUAL_FILE_CLEANUP"

// startAuditSubscriber mirrors chat lifecycle events into the system log via
// a durable consumer. The subscription is best-effort; the chat pipeline
// never depends on it.
func startAuditSubscriber(natsURL string, sysLogger logger.ILogger) {
	sub, err := pktNats.NewSubscriber(natsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		return
	}
	err = sub.Subscribe("chat.>", "chat-audit", func(_ context.Context, ev events.Event) error {
		sysLogger.Info("Audit", "Chat event observed", map[string]interface{}{
			"subject": ev.EventType(),
			"payload": ev.Payload(),
		})
		return nil
	})
	if err != nil {
		log.Printf("[WARN] Failed to start audit subscriber: %v", err)
		sub.Close()
	}
}

type Container struct {
	// Controllers
	ChatController controller.IChatController

	// Realtime entry point
	SessionHandler *handler.SessionHandler

	// Background Services (Exposed for main.go to run)
	CleanupService service.ICleanupService

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus (in-process, for deferred temp-file cleanup)
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	var embeddingProvider embedding.Provider
	if cfg.Ai.EmbeddingProvider == "gemini" {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Ai.GeminiApiKey)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	} else {
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.GeminiApiKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	transcriber := speech.NewHTTPTranscriber(cfg.Ai.SpeechToTextURL)
	synthesizer := speech.NewHTTPSynthesizer(cfg.Ai.TextToSpeechURL)
	imageGenerator := imagery.NewHTTPGenerator(cfg.Ai.ImageGenURL)
	imageCaptioner := imagery.NewHTTPCaptioner(cfg.Ai.ImageCaptionURL)

	// 4. Infrastructure
	// NATS (optional; lifecycle events are best-effort)
	var natsPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
			natsPub = nil
		}
		startAuditSubscriber(cfg.App.NatsURL, sysLogger)
	}

	// Redis-backed context store, with in-process fallback when unset
	var contextStore cache.Store
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		contextStore = cache.NewRedisStore(rdb)
	} else {
		log.Printf("[INFO] REDIS_URL unset, context cache runs in-process")
		contextStore = cache.NewMemoryStore()
	}

	// 5. Repositories and state
	messageRepo := implementation.NewMessageRepository(db)
	contextCache := cache.NewContextCache(
		contextStore,
		messageRepo,
		cfg.Chat.AssistantUrn,
		time.Duration(cfg.Chat.ContextTTLSeconds)*time.Second,
		sysLogger,
	)
	vectorStore := vectorstore.NewStore(cfg.Vector.BaseDir, embeddingProvider, cfg.Vector.TopK, sysLogger)

	wsLogger := logger.NewIsolatedLogger("logs/session.log")
	registry := internalWS.NewRegistry(wsLogger)

	// 6. Services
	cleanupService := service.NewCleanupService(pubSub, cleanupTopic, sysLogger)
	messenger := service.NewMessengerService(messageRepo, registry, natsPub, sysLogger)

	textGenService := service.NewTextGenerationService(
		messenger, registry, contextCache, llmProvider, synthesizer,
		cfg.Chat.AssistantUrn, cfg.Chat.AssistantName, sysLogger,
	)
	codeGenService := service.NewCodeGenerationService(
		messenger, contextCache, llmProvider,
		cfg.Chat.AssistantUrn, cfg.Chat.AssistantName, sysLogger,
	)
	imageGenService := service.NewImageGenerationService(
		messenger, registry, imageGenerator,
		cfg.Chat.AssistantUrn, cfg.Chat.AssistantName, sysLogger,
	)
	imageCaptionService := service.NewImageCaptionService(
		messenger, imageCaptioner, llmProvider, cleanupService, cfg.App.TempDir,
		cfg.Chat.AssistantUrn, cfg.Chat.AssistantName, sysLogger,
	)
	speechToTextService := service.NewSpeechToTextService(
		transcriber, cleanupService, cfg.App.TempDir, sysLogger,
	)
	ragService := service.NewRagService(
		messenger, vectorStore, llmProvider, cleanupService, natsPub,
		cfg.App.TempDir, cfg.Vector.ChunkSize, cfg.Vector.ChunkOverlap,
		cfg.Chat.AssistantUrn, cfg.Chat.AssistantName, sysLogger,
	)
	chatService := service.NewChatService(messageRepo, contextCache, vectorStore, natsPub, sysLogger)

	// 7. Event routing
	router := event.NewRouter(sysLogger)
	pipelineHandler := handler.NewPipelineHandler(
		textGenService,
		codeGenService,
		imageGenService,
		imageCaptionService,
		speechToTextService,
		ragService,
		contextCache,
		sysLogger,
	)
	pipelineHandler.RegisterRoutes(router)

	sessionHandler := handler.NewSessionHandler(registry, router, wsLogger)

	return &Container{
		ChatController: controller.NewChatController(chatService, ragService),
		SessionHandler: sessionHandler,
		CleanupService: cleanupService,
		Logger:         sysLogger,
	}
}
