package main

import (
	"bytes"
	"image"
	"image/png"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// animCommand is the render loop's inbox for remote animation control.
type animCommand int

const (
	cmdStartAnimation animCommand = iota
	cmdStopAnimation
)

// sendAnimCommand is lossy on purpose: repeated identical commands are
// idempotent, so a full queue means the command is already pending.
func sendAnimCommand(cmd animCommand) {
	select {
	case animCommands <- cmd:
	default:
	}
}

// serveFrame mirrors the live panel as a PNG, reading the frame under the
// same guard the render loop composes it with.
func serveFrame(c *fiber.Ctx) error {
	frameMutex.RLock()
	src := screen.frame
	mirror := image.NewRGBA(src.Bounds())
	copy(mirror.Pix, src.Pix)
	frameMutex.RUnlock()

	var buf bytes.Buffer
	if err := png.Encode(&buf, mirror); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to encode image")
	}

	c.Set("Content-Type", "image/png")
	c.Set("Content-Length", strconv.Itoa(buf.Len()))
	return c.Send(buf.Bytes())
}

func serveStatus(c *fiber.Ctx) error {
	return c.JSON(status.Snapshot())
}

// setPreset handles {"preset":"busy"|"talk"}.
func setPreset(c *fiber.Ctx) error {
	var body struct {
		Preset string `json:"preset"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid JSON")
	}

	var mode StatusMode
	switch body.Preset {
	case "busy":
		mode = ModeBusy
	case "talk":
		mode = ModeAvailable
	default:
		return c.Status(fiber.StatusBadRequest).SendString("Unknown preset")
	}

	status.Mutate(func(st *StatusState) { st.applyMode(mode) })
	return c.SendString("OK")
}

// setCustomText handles {"text":..., "color":"#RRGGBB"} as the free-text
// status. Oversize text truncates, a malformed color keeps the old one.
func setCustomText(c *fiber.Ctx) error {
	var body struct {
		Text  string `json:"text"`
		Color string `json:"color"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid JSON")
	}

	status.Mutate(func(st *StatusState) {
		st.Mode = ModeFreeText
		st.Text = NewBoundedText(body.Text)
		if clr, err := parseHexColor(body.Color); err == nil {
			st.Color = clr
		}
	})
	return c.SendString("OK")
}

func slotIndex(c *fiber.Ctx) (int, bool) {
	idx, err := strconv.Atoi(c.Params("index"))
	if err != nil || idx < 1 || idx > 3 {
		return 0, false
	}
	return idx - 1, true
}

// selectSlot activates a stored custom status; an unset slot is not an
// error, it is just not selectable.
func selectSlot(c *fiber.Ctx) error {
	idx, ok := slotIndex(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("Bad slot index")
	}

	selected := false
	status.Mutate(func(st *StatusState) {
		if st.Slots[idx].Empty() {
			return
		}
		st.applyMode(ModeCustom1 + StatusMode(idx))
		selected = true
	})
	if !selected {
		return c.Status(fiber.StatusConflict).SendString("Slot is empty")
	}
	return c.SendString("OK")
}

// updateSlot rewrites a slot; when that slot is the active mode the
// displayed text and color follow in the same mutation.
func updateSlot(c *fiber.Ctx) error {
	idx, ok := slotIndex(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("Bad slot index")
	}
	var body struct {
		Text  string `json:"text"`
		Color string `json:"color"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid JSON")
	}

	status.Mutate(func(st *StatusState) {
		st.Slots[idx].Text = NewBoundedText(body.Text)
		if clr, err := parseHexColor(body.Color); err == nil {
			st.Slots[idx].Color = clr
		}
		if st.Mode == ModeCustom1+StatusMode(idx) {
			st.applyMode(st.Mode)
		}
	})
	return c.SendString("OK")
}

func setCorner(c *fiber.Ctx) error {
	var body struct {
		Mode string `json:"mode"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid JSON")
	}

	var mode CornerInfoMode
	switch body.Mode {
	case "none":
		mode = CornerNone
	case "deviceid":
		mode = CornerDeviceID
	case "ip":
		mode = CornerNetworkAddress
	default:
		return c.Status(fiber.StatusBadRequest).SendString("Unknown corner mode")
	}

	status.Mutate(func(st *StatusState) { st.CornerInfo = mode })
	return c.SendString("OK")
}

func setShowBattery(c *fiber.Ctx) error {
	var body struct {
		Show bool `json:"show"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid JSON")
	}
	status.Mutate(func(st *StatusState) { st.ShowBattery = body.Show })
	return c.SendString("OK")
}

func setRotation(c *fiber.Ctx) error {
	var body struct {
		Flipped bool `json:"flipped"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid JSON")
	}
	status.Mutate(func(st *StatusState) {
		if body.Flipped {
			st.Rotation = LandscapeFlipped
		} else {
			st.Rotation = Landscape
		}
	})
	return c.SendString("OK")
}

func startAnimation(c *fiber.Ctx) error {
	sendAnimCommand(cmdStartAnimation)
	return c.SendString("OK")
}

func stopAnimation(c *fiber.Ctx) error {
	sendAnimCommand(cmdStopAnimation)
	return c.SendString("OK")
}

func indexHandler(c *fiber.Ctx) error {
	return c.SendFile("assets/html/index.html")
}

func setupRoutes(app *fiber.App) {
	app.Get("/", indexHandler)
	app.Get("/frame", serveFrame)
	app.Get("/status", serveStatus)
	app.Post("/status", setPreset)
	app.Post("/custom", setCustomText)
	app.Post("/slot/:index", selectSlot)
	app.Put("/slot/:index", updateSlot)
	app.Post("/corner", setCorner)
	app.Post("/battery", setShowBattery)
	app.Post("/rotation", setRotation)
	app.Post("/animation/start", startAnimation)
	app.Post("/animation/stop", stopAnimation)
}

func httpServer() {
	app := fiber.New()
	setupRoutes(app)

	port := ":8081"
	log.Println("Starting Fiber server on", port)
	log.Fatal(app.Listen(port))
}
