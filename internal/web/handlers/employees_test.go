package handlers

import (
	"net/http"
	"testing"
)

func TestCreateEmployee(t *testing.T) {
	e := newEnv(t, &stubExtractor{})

	t.Run("success", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/api/v1/employees", CreateEmployeeRequest{
			Code: "E001",
			Name: "Alice",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}

		var resp EmployeeResponse
		decodeBody(t, rec, &resp)
		if resp.ID == "" {
			t.Error("employee id not assigned")
		}
		if !resp.Active {
			t.Error("new employee not active")
		}
		if resp.Enrolled {
			t.Error("new employee marked enrolled")
		}
	})

	t.Run("duplicate code", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/api/v1/employees", CreateEmployeeRequest{
			Code: "E001",
			Name: "Another Alice",
		})
		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("blank fields", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/api/v1/employees", CreateEmployeeRequest{
			Code: "  ",
			Name: "",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestListEmployees(t *testing.T) {
	e := newEnv(t, &stubExtractor{})
	e.addEmployee(t, "emp-1", "E001", "Alice")
	e.addEmployee(t, "emp-2", "E002", "Bob")

	rec := e.do(t, http.MethodGet, "/api/v1/employees", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Employees []EmployeeResponse `json:"employees"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Employees) != 2 {
		t.Errorf("employees = %d, want 2", len(resp.Employees))
	}
}
