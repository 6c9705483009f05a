package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/menu-catalog/controllers"
	"github.com/yeremiapane/menu-catalog/database"
	"github.com/yeremiapane/menu-catalog/repositories"
	"github.com/yeremiapane/menu-catalog/services"
	"github.com/yeremiapane/menu-catalog/storage"
)

type menuItemJSON struct {
	ID       uint    `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
	Image    *string `json:"image"`
}

func setupMenuRouter(t *testing.T) (*gin.Engine, *storage.MemoryImageStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.DriverSQLite, ":memory:", logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	require.NoError(t, database.Migrate(db))

	images := storage.NewMemoryImageStore()
	svc := services.NewMenuItemService(repositories.NewMenuItemRepository(db), images, nil, nil)
	menuCtrl := controllers.NewMenuItemController(svc, images, 1<<20)

	router := gin.New()
	router.GET("/menu-items", menuCtrl.GetMenuItems)
	router.POST("/menu-items", menuCtrl.CreateMenuItem)
	router.GET("/menu-items/:id", menuCtrl.GetMenuItemByID)
	router.PUT("/menu-items/:id", menuCtrl.UpdateMenuItem)
	router.DELETE("/menu-items/:id", menuCtrl.DeleteMenuItem)
	router.GET("/uploads/*filepath", menuCtrl.ServeImage)
	return router, images
}

type file struct {
	name    string
	content string
}

func multipartRequest(t *testing.T, method, url string, fields map[string]string, img *file) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if img != nil {
		fw, err := mw.CreateFormFile("image", img.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(img.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeItem(t *testing.T, w *httptest.ResponseRecorder) menuItemJSON {
	t.Helper()
	var item menuItemJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item), w.Body.String())
	return item
}

func createItem(t *testing.T, router http.Handler, name, price, category string, img *file) menuItemJSON {
	t.Helper()
	w := serve(router, multipartRequest(t, http.MethodPost, "/menu-items",
		map[string]string{"name": name, "price": price, "category": category}, img))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decodeItem(t, w)
}

func TestCreateBurgerWithImage(t *testing.T) {
	router, images := setupMenuRouter(t)

	item := createItem(t, router, "Burger", "9.99", "Mains", &file{name: "burger.png", content: "png"})

	assert.NotZero(t, item.ID)
	assert.Equal(t, "Burger", item.Name)
	assert.Equal(t, 9.99, item.Price)
	assert.Equal(t, "Mains", item.Category)
	require.NotNil(t, item.Image)
	assert.Regexp(t, regexp.MustCompile(`^uploads/\d+-burger\.png$`), *item.Image)
	assert.True(t, images.Has(*item.Image))

	w := serve(router, httptest.NewRequest(http.MethodGet, "/"+*item.Image, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png", w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
}

func TestCreateWithoutImageStoresNull(t *testing.T) {
	router, _ := setupMenuRouter(t)

	w := serve(router, multipartRequest(t, http.MethodPost, "/menu-items",
		map[string]string{"name": "Water", "price": "1", "category": "Drinks"}, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"image":null`)
}

func TestCreateValidation(t *testing.T) {
	router, images := setupMenuRouter(t)

	cases := []struct {
		fields map[string]string
		errMsg string
	}{
		{map[string]string{"price": "1", "category": "Mains"}, "name is required"},
		{map[string]string{"name": "Burger", "category": "Mains"}, "price is required"},
		{map[string]string{"name": "Burger", "price": "1"}, "category is required"},
		{map[string]string{"name": "Burger", "price": "abc", "category": "Mains"}, "price must be a number"},
		{map[string]string{"name": "Burger", "price": "NaN", "category": "Mains"}, "price must be a number"},
	}
	for _, tc := range cases {
		w := serve(router, multipartRequest(t, http.MethodPost, "/menu-items", tc.fields, &file{name: "a.png", content: "a"}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, fmt.Sprintf(`{"error":%q}`, tc.errMsg), w.Body.String())
	}
	assert.Equal(t, 0, images.Len())
}

func TestCreateTooLarge(t *testing.T) {
	router, images := setupMenuRouter(t)

	big := strings.Repeat("x", 2<<20)
	w := serve(router, multipartRequest(t, http.MethodPost, "/menu-items",
		map[string]string{"name": "Big", "price": "1", "category": "Mains"}, &file{name: "big.png", content: big}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, 0, images.Len())
}

func TestListFilters(t *testing.T) {
	router, _ := setupMenuRouter(t)
	createItem(t, router, "Cheese Burger", "9", "Mains", nil)
	createItem(t, router, "Burger Fries", "3", "Sides", nil)
	createItem(t, router, "Salad", "5", "Mains", nil)

	list := func(query string) []menuItemJSON {
		w := serve(router, httptest.NewRequest(http.MethodGet, "/menu-items"+query, nil))
		require.Equal(t, http.StatusOK, w.Code)
		var items []menuItemJSON
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
		return items
	}

	assert.Len(t, list(""), 3)
	assert.Len(t, list("?category=Mains"), 2)
	assert.Len(t, list("?search=burger"), 2)

	both := list("?category=Mains&search=BURGER")
	require.Len(t, both, 1)
	assert.Equal(t, "Cheese Burger", both[0].Name)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/menu-items?category=None", nil))
	assert.Equal(t, "[]", w.Body.String())
}

func TestUpdateKeepsAndReplacesImage(t *testing.T) {
	router, images := setupMenuRouter(t)
	item := createItem(t, router, "Pizza", "12", "Mains", &file{name: "old.png", content: "old"})
	url := fmt.Sprintf("/menu-items/%d", item.ID)

	w := serve(router, multipartRequest(t, http.MethodPut, url,
		map[string]string{"name": "Pizza XL", "price": "15", "category": "Mains"}, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	kept := decodeItem(t, w)
	assert.Equal(t, "Pizza XL", kept.Name)
	assert.Equal(t, 15.0, kept.Price)
	assert.Equal(t, *item.Image, *kept.Image)

	w = serve(router, multipartRequest(t, http.MethodPut, url,
		map[string]string{"name": "Pizza XL", "price": "15", "category": "Mains"}, &file{name: "new.png", content: "new"}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	replaced := decodeItem(t, w)
	assert.NotEqual(t, *item.Image, *replaced.Image)
	assert.False(t, images.Has(*item.Image))
	assert.True(t, images.Has(*replaced.Image))
}

func TestUpdateUnknownItem(t *testing.T) {
	router, _ := setupMenuRouter(t)

	w := serve(router, multipartRequest(t, http.MethodPut, "/menu-items/999",
		map[string]string{"name": "x", "price": "1", "category": "y"}, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Menu item not found"}`, w.Body.String())

	w = serve(router, httptest.NewRequest(http.MethodPut, "/menu-items/999", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateValidation(t *testing.T) {
	router, _ := setupMenuRouter(t)
	item := createItem(t, router, "Tea", "2", "Drinks", nil)

	w := serve(router, multipartRequest(t, http.MethodPut, fmt.Sprintf("/menu-items/%d", item.ID),
		map[string]string{"name": "Tea", "price": "two", "category": "Drinks"}, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"price must be a number"}`, w.Body.String())
}

func TestDeleteTwice(t *testing.T) {
	router, images := setupMenuRouter(t)
	item := createItem(t, router, "Cake", "6", "Desserts", &file{name: "cake.jpg", content: "cake"})
	url := fmt.Sprintf("/menu-items/%d", item.ID)

	w := serve(router, httptest.NewRequest(http.MethodDelete, url, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Menu item deleted"}`, w.Body.String())
	assert.False(t, images.Has(*item.Image))

	w = serve(router, httptest.NewRequest(http.MethodDelete, url, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Menu item not found"}`, w.Body.String())

	w = serve(router, httptest.NewRequest(http.MethodGet, url, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvalidID(t *testing.T) {
	router, _ := setupMenuRouter(t)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		w := serve(router, httptest.NewRequest(method, "/menu-items/abc", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, method)
		assert.JSONEq(t, `{"error":"Invalid menu item id"}`, w.Body.String())
	}
}

func TestServeImageMissing(t *testing.T) {
	router, _ := setupMenuRouter(t)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/uploads/nope.png", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoundTrip(t *testing.T) {
	router, _ := setupMenuRouter(t)
	created := createItem(t, router, "Soup", "4.5", "Starters", &file{name: "soup.png", content: "s"})

	w := serve(router, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/menu-items/%d", created.ID), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created, decodeItem(t, w))
}
