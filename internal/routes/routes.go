package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/zinco/internal/app"
	"github.com/example/zinco/internal/config"
	"github.com/example/zinco/internal/handlers"
	"github.com/example/zinco/internal/logger"
	"github.com/example/zinco/internal/middleware"
	"github.com/example/zinco/internal/services"
)

// Deps are the collaborators shared by the handlers.
type Deps struct {
	DB       *gorm.DB
	Config   *config.Config
	Registry *app.Registry
	Telegram *services.TelegramService
	SMS      handlers.SMSSender
	Avatars  *services.AvatarStorage
	Logger   *logger.Logger
}

// Register wires up all HTTP routes. The returned wait blocks until the
// work handlers start after responding, such as order notifications, is
// done; call it once the server has stopped accepting requests.
func Register(router fiber.Router, deps Deps) (wait func()) {
	validate := handlers.NewValidator()

	deviceHandler := handlers.NewDeviceHandler(deps.Config.JWT)
	authHandler := handlers.NewAuthHandler(deps.Registry)
	profileHandler := handlers.NewProfileHandler(deps.Registry, deps.Avatars, validate)
	productHandler := handlers.NewProductHandler(deps.DB)
	cartHandler := handlers.NewCartHandler(deps.Registry, deps.DB)
	orderHandler := handlers.NewOrderHandler(deps.Registry, deps.DB)

	var notifier handlers.OrderNotifier
	if deps.Telegram != nil {
		notifier = deps.Telegram
	}
	checkoutHandler := handlers.NewCheckoutHandler(deps.Registry, deps.DB, validate, notifier, deps.SMS, deps.Logger)

	api := router.Group("/api")

	api.Post("/devices", deviceHandler.Register)

	// Catalog routes
	products := api.Group("/products")
	products.Get("/", productHandler.ListProducts)
	products.Get("/:id", productHandler.GetProduct)

	device := middleware.DeviceMiddleware(deps.Config.JWT.Secret)

	api.Get("/session", device, authHandler.Session)

	// Auth routes
	authGroup := api.Group("/auth", device)
	authGroup.Post("/otp", authHandler.RequestOTP)
	authGroup.Post("/otp/resend", authHandler.ResendOTP)
	authGroup.Post("/otp/verify", authHandler.VerifyOTP)
	authGroup.Post("/otp/digits", authHandler.OTPDigits)
	authGroup.Post("/pin", authHandler.SubmitPin)
	authGroup.Post("/pin/digits", authHandler.PinDigits)
	authGroup.Post("/pin/start", authHandler.StartPinEntry)
	authGroup.Post("/cancel", authHandler.Cancel)
	authGroup.Post("/logout", authHandler.Logout)

	// Profile routes
	profile := api.Group("/profile", device)
	profile.Get("/", profileHandler.GetProfile)
	profile.Put("/", profileHandler.UpdateProfile)
	profile.Put("/avatar", profileHandler.UploadAvatar)

	// Cart routes
	cart := api.Group("/cart", device)
	cart.Get("/", cartHandler.GetCart)
	cart.Delete("/", cartHandler.ClearCart)
	cart.Post("/items", cartHandler.AddItem)
	cart.Put("/items/:id", cartHandler.UpdateItem)
	cart.Delete("/items/:id", cartHandler.RemoveItem)

	api.Post("/checkout", device, checkoutHandler.Checkout)

	// Order history
	orders := api.Group("/orders", device)
	orders.Get("/", orderHandler.ListOrders)
	orders.Get("/:id", orderHandler.GetOrder)

	return checkoutHandler.Wait
}
