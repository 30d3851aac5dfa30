package document

const printScript = `<script>window.addEventListener("load", function () { window.focus(); window.print(); });</script>`

const ticketHTML = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Ticket {{.Table}}</title>
<style>
  body { font-family: 'Courier New', monospace; width: 300px; margin: 0 auto; padding: 10px; font-size: 12px; }
  h1 { text-align: center; font-size: 18px; margin: 5px 0; }
  .center { text-align: center; }
  .line { border-top: 1px dashed #000; margin: 8px 0; }
  table { width: 100%; border-collapse: collapse; }
  td.price { text-align: right; }
  .total { font-size: 16px; font-weight: bold; text-align: right; margin-top: 8px; }
</style></head><body>
  <h1>{{.Business.Name}}</h1>
  {{- if .Business.Address}}<p class="center">{{.Business.Address}}</p>{{end}}
  {{- if .Business.Phone}}<p class="center">Tel: {{.Business.Phone}}</p>{{end}}
  <div class="line"></div>
  <p><strong>Mesa:</strong> {{.Table}}</p>
  <p><strong>Fecha:</strong> {{date .IssuedAt}} {{time .IssuedAt}}</p>
  <div class="line"></div>
  <table>
    {{- range .Items}}
    <tr><td>{{.Quantity}}x {{.Name}}</td><td class="price">{{money .Subtotal}}</td></tr>
    {{- end}}
  </table>
  <div class="line"></div>
  <p class="total">TOTAL: {{money .GrandTotal}}</p>
  {{- if .ShowShare}}
  <p class="center">Por persona ({{.PartySize}}): {{money .Share}}</p>
  {{- end}}
  {{- if .PaymentLabel}}
  <p class="center">Método de pago: {{.PaymentLabel}}</p>
  {{- end}}
  <div class="line"></div>
  <p class="center">¡Gracias por su compra!</p>
` + printScript + `
</body></html>`

const summaryHTML = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Corte de Caja (Z)</title>
<style>
  body { font-family: 'Courier New', monospace; width: 300px; margin: 0 auto; padding: 10px; font-size: 12px; }
  h1, h2 { text-align: center; margin: 5px 0; }
  .line { border-top: 1px dashed #000; margin: 8px 0; }
  .row { display: flex; justify-content: space-between; }
  .total { font-size: 16px; font-weight: bold; text-align: right; margin-top: 8px; }
  .center { text-align: center; }
</style></head><body>
  <h1>{{.Business.Name}}</h1>
  <h2>CORTE DE CAJA (Z)</h2>
  <p class="center">{{stamp .GeneratedAt}}</p>
  <div class="line"></div>
  <div class="row"><span>Total Transacciones:</span><span>{{.Transactions}}</span></div>
  <div class="row"><span>Total en Efectivo:</span><span>{{money .TotalCash}}</span></div>
  <div class="row"><span>Total en Tarjeta:</span><span>{{money .TotalCard}}</span></div>
  <div class="line"></div>
  <p class="total">VENTA TOTAL: {{money .TotalSales}}</p>
  <p class="center">Fin del Reporte</p>
` + printScript + `
</body></html>`

const monthlyHTML = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Reporte de Ventas</title>
<style>
  body { font-family: sans-serif; margin: 20px; }
  h1, h2 { text-align: center; }
  table { width: 100%; border-collapse: collapse; margin-top: 20px; }
  th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
  th { background-color: #f2f2f2; }
  .summary { display: flex; justify-content: space-around; margin: 20px 0; padding: 10px; background: #f9f9f9; border-radius: 8px; }
  .summary-item { text-align: center; }
</style></head><body>
  <h1>Reporte de Ventas</h1>
  <h2>{{month .Month}} {{.Year}}</h2>
  <div class="summary">
    <div class="summary-item"><h3>Ventas Totales</h3><p>{{money .Stats.TotalSales}}</p></div>
    <div class="summary-item"><h3>Transacciones</h3><p>{{.Stats.Transactions}}</p></div>
    <div class="summary-item"><h3>Venta Promedio</h3><p>{{money .Stats.Average}}</p></div>
  </div>
  {{- if .Stats.TopProducts}}
  <h3>Productos Más Vendidos</h3>
  <table>
    <thead><tr><th>Producto</th><th>Cantidad</th><th>Total</th></tr></thead>
    <tbody>
    {{- range .Stats.TopProducts}}
      <tr><td>{{.Name}}</td><td>{{.Quantity}}</td><td>{{money .Revenue}}</td></tr>
    {{- end}}
    </tbody>
  </table>
  {{- end}}
  <h3>Detalle de Transacciones</h3>
  <table>
    <thead><tr><th>Fecha</th><th>Mesa</th><th>Items</th><th>Total</th></tr></thead>
    <tbody>
    {{- range .Sales}}
      <tr>
        <td>{{stamp .CreatedAt}}</td>
        <td>{{.Table}}</td>
        <td>{{range $i, $item := .Items}}{{if $i}}<br>{{end}}{{$item.Quantity}}x {{$item.Name}}{{end}}</td>
        <td>{{money .Total}}</td>
      </tr>
    {{- end}}
    </tbody>
  </table>
` + printScript + `
</body></html>`
